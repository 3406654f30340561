package fix

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"

	"github.com/kfix-sh/kfix/internal/logging"
)

// Confirmer asks the operator a yes/no question. It blocks until the
// operator answers.
type Confirmer func(question string) (bool, error)

// ExecFunc runs one approved command.
type ExecFunc func(ctx context.Context, command string) ExecutionResult

// Session drives one auto-fix batch: display the candidates, apply the
// policy, collect confirmations, execute. It owns no state across
// batches.
type Session struct {
	Policy  Policy
	Yes     bool // bypasses confirmation prompts, never the safe filter
	DryRun  bool
	Confirm Confirmer
	Exec    ExecFunc
	Out     io.Writer

	log *slog.Logger
}

// NewSession wires a session around an executor.
func NewSession(policy Policy, yes, dryRun bool, confirm Confirmer, executor *Executor, out io.Writer) *Session {
	return &Session{
		Policy:  policy,
		Yes:     yes,
		DryRun:  dryRun,
		Confirm: confirm,
		Exec:    executor.Execute,
		Out:     out,
		log:     logging.Component("fix-session"),
	}
}

// Run processes one batch of extracted commands. The candidate list is
// always shown before anything executes; what happens next depends on
// the policy, the dry-run flag and the operator's answers.
func (s *Session) Run(ctx context.Context, commands []string) ([]ExecutionResult, error) {
	if len(commands) == 0 {
		fmt.Fprintln(s.Out, "No remediation commands found in the diagnosis.")
		return nil, nil
	}

	planned := Plan(s.Policy, commands)
	s.display(planned)

	if s.DryRun {
		fmt.Fprintln(s.Out, "Dry run: nothing will be executed.")
		return nil, nil
	}
	if s.Policy == PolicyOff {
		fmt.Fprintln(s.Out, "Auto-fix policy is off: commands are shown for reference only.")
		return nil, nil
	}

	var runnable []PlannedCommand
	for _, pc := range planned {
		if !pc.Blocked {
			runnable = append(runnable, pc)
		}
	}
	if len(runnable) == 0 {
		fmt.Fprintln(s.Out, "No commands are eligible under the safe policy.")
		return nil, nil
	}

	batchApproved := s.Yes
	if !s.Yes && len(runnable) > 1 {
		ok, err := s.Confirm(fmt.Sprintf("Run all %d commands", len(runnable)))
		if err != nil {
			return nil, err
		}
		if !ok {
			fmt.Fprintln(s.Out, "Batch declined, nothing executed.")
			return nil, nil
		}
		batchApproved = true
	}

	var results []ExecutionResult
	for _, pc := range runnable {
		approved, err := s.approve(pc, batchApproved)
		if err != nil {
			return results, err
		}
		if !approved {
			fmt.Fprintf(s.Out, "Skipped: %s\n", pc.Command)
			continue
		}

		res := s.Exec(ctx, pc.Command)
		results = append(results, res)
		s.report(res)
	}
	return results, nil
}

// approve applies the confirmation rules to one command. Risky commands
// always get their own prompt, even inside an approved batch, unless the
// operator passed --yes.
func (s *Session) approve(pc PlannedCommand, batchApproved bool) (bool, error) {
	if s.Yes {
		return true, nil
	}
	if pc.Risk == RiskRisky {
		return s.Confirm(fmt.Sprintf(
			"%q is a risky command (%s) and requires its own confirmation. Run it",
			pc.Command, pc.Signature))
	}
	if batchApproved {
		return true, nil
	}
	return s.Confirm(fmt.Sprintf("Run %q", pc.Command))
}

func (s *Session) display(planned []PlannedCommand) {
	fmt.Fprintf(s.Out, "\nProposed remediation commands (policy: %s):\n", s.Policy)
	for i, pc := range planned {
		marker := "  "
		switch {
		case pc.Blocked:
			marker = color.YellowString("⊘ ")
		case pc.Risk == RiskRisky:
			marker = color.RedString("! ")
		}
		fmt.Fprintf(s.Out, "%s%d. %s", marker, i+1, pc.Command)
		switch {
		case pc.Blocked:
			fmt.Fprintf(s.Out, "  %s", color.YellowString("[blocked by safe policy]"))
		case pc.Risk == RiskRisky:
			fmt.Fprintf(s.Out, "  %s", color.RedString("[risky]"))
		}
		fmt.Fprintln(s.Out)
	}
	fmt.Fprintln(s.Out)
}

func (s *Session) report(res ExecutionResult) {
	if res.Success() {
		fmt.Fprintf(s.Out, "%s %s\n", color.GreenString("✓"), res.Command)
	} else {
		reason := fmt.Sprintf("exit code %d", res.ExitCode)
		if res.TimedOut {
			reason = "timed out"
		} else if res.Err != nil {
			reason = res.Err.Error()
		}
		fmt.Fprintf(s.Out, "%s %s (%s)\n", color.RedString("✗"), res.Command, reason)
	}
	if res.Stdout != "" {
		fmt.Fprint(s.Out, res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(s.Out, res.Stderr)
	}
}
