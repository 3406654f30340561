package fix

import (
	"fmt"

	"github.com/google/shlex"
)

// Policy governs how a batch of extracted commands is handled.
type Policy string

const (
	// PolicyOff displays candidates and executes nothing.
	PolicyOff Policy = "off"
	// PolicyReview executes only with operator confirmation.
	PolicyReview Policy = "review"
	// PolicySafe blocks commands outside the safe allow-list, then
	// applies review confirmation rules to the rest.
	PolicySafe Policy = "safe"
)

// PolicyError reports an invalid policy name. It is fatal: no command in
// the invocation executes.
type PolicyError struct {
	Value string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid auto-fix policy %q (valid: off, review, safe)", e.Value)
}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyOff, PolicyReview, PolicySafe:
		return Policy(s), nil
	}
	return "", &PolicyError{Value: s}
}

// RiskClass is the safety classification of a command.
type RiskClass string

const (
	RiskSafe         RiskClass = "safe"
	RiskRisky        RiskClass = "risky"
	RiskUnclassified RiskClass = "unclassified"
)

// riskySignatures always require their own confirmation and are never
// eligible under the safe policy.
var riskySignatures = map[string]bool{
	"delete":  true,
	"drain":   true,
	"replace": true,
}

// safeSignatures is the allow-list usable under the safe policy.
var safeSignatures = map[string]bool{
	"annotate":        true,
	"apply":           true,
	"label":           true,
	"patch":           true,
	"rollout restart": true,
	"scale":           true,
	"set image":       true,
	"set resources":   true,
}

// ActionSignature extracts the normalized verb of a kubectl command.
// Commands that do not tokenize, or whose first token is not kubectl,
// get an empty signature and are never treated as safe. Two compound
// verbs are recognized explicitly: "rollout restart" and "set image" /
// "set resources".
func ActionSignature(command string) string {
	tokens, err := shlex.Split(command)
	if err != nil || len(tokens) < 2 || tokens[0] != "kubectl" {
		return ""
	}
	switch tokens[1] {
	case "rollout":
		if len(tokens) >= 3 && tokens[2] == "restart" {
			return "rollout restart"
		}
	case "set":
		if len(tokens) >= 3 && (tokens[2] == "image" || tokens[2] == "resources") {
			return "set " + tokens[2]
		}
	}
	return tokens[1]
}

// ClassifyCommand derives the risk class from the action signature.
func ClassifyCommand(command string) RiskClass {
	sig := ActionSignature(command)
	switch {
	case riskySignatures[sig]:
		return RiskRisky
	case safeSignatures[sig]:
		return RiskSafe
	default:
		return RiskUnclassified
	}
}

// Candidate is one extracted command with its derived properties. Both
// properties are stateless and recomputed per batch.
type Candidate struct {
	Command   string
	Signature string
	Risk      RiskClass
}

// PlannedCommand is a candidate with the policy's verdict attached.
type PlannedCommand struct {
	Candidate
	// Blocked marks commands the safe policy refuses outright: they are
	// shown, never prompted for, never executed.
	Blocked bool
}

// Plan evaluates a batch under a policy. It never executes or prompts;
// it only decides eligibility. The off policy is handled by the caller
// (nothing is planned at all).
func Plan(policy Policy, commands []string) []PlannedCommand {
	planned := make([]PlannedCommand, 0, len(commands))
	for _, cmd := range commands {
		cand := Candidate{
			Command:   cmd,
			Signature: ActionSignature(cmd),
			Risk:      ClassifyCommand(cmd),
		}
		planned = append(planned, PlannedCommand{
			Candidate: cand,
			Blocked:   policy == PolicySafe && cand.Risk != RiskSafe,
		})
	}
	return planned
}
