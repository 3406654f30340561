// Package fix extracts remediation commands from AI diagnoses,
// classifies them by risk, and executes approved ones under a tiered
// safety policy.
package fix

import (
	"regexp"
	"strings"
)

var inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")

// ExtractCommands pulls candidate kubectl commands out of markdown
// diagnosis text. Fenced code blocks (optionally tagged bash/sh) are
// scanned first for non-comment lines starting with the kubectl token;
// only when no fenced command exists do inline backtick spans count as a
// fallback. Order of appearance is preserved and duplicates are kept —
// the policy engine, not the extractor, decides what runs. An empty
// result is a normal outcome, not an error.
func ExtractCommands(markdown string) []string {
	var commands []string

	inFence := false
	collect := false
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") {
			if inFence {
				inFence = false
				collect = false
				continue
			}
			inFence = true
			tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "```")))
			collect = tag == "" || tag == "bash" || tag == "sh"
			continue
		}
		if !inFence || !collect {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if isKubectlLine(line) {
			commands = append(commands, line)
		}
	}

	if len(commands) > 0 {
		return commands
	}

	for _, m := range inlineCodeRe.FindAllStringSubmatch(markdown, -1) {
		span := strings.TrimSpace(m[1])
		if isKubectlLine(span) {
			commands = append(commands, span)
		}
	}
	return commands
}

// isKubectlLine reports whether the first token is literally "kubectl".
func isKubectlLine(line string) bool {
	return line == "kubectl" || strings.HasPrefix(line, "kubectl ") || strings.HasPrefix(line, "kubectl\t")
}
