package fix

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// scriptedConfirmer answers prompts from a fixed script and records the
// questions asked.
type scriptedConfirmer struct {
	answers   []bool
	questions []string
}

func (c *scriptedConfirmer) confirm(question string) (bool, error) {
	c.questions = append(c.questions, question)
	if len(c.answers) == 0 {
		return false, nil
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}

// recordingExec pretends every command succeeds and records what ran.
type recordingExec struct {
	ran []string
}

func (r *recordingExec) exec(ctx context.Context, command string) ExecutionResult {
	r.ran = append(r.ran, command)
	return ExecutionResult{Command: command}
}

func newTestSession(policy Policy, yes, dryRun bool, confirmer *scriptedConfirmer, exec *recordingExec) (*Session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	s := NewSession(policy, yes, dryRun, confirmer.confirm, NewExecutor(), out)
	s.Exec = exec.exec
	return s, out
}

func TestSessionEmptyBatch(t *testing.T) {
	exec := &recordingExec{}
	s, out := newTestSession(PolicyReview, false, false, &scriptedConfirmer{}, exec)

	if _, err := s.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 0 {
		t.Errorf("executed %v for an empty batch", exec.ran)
	}
	if !strings.Contains(out.String(), "No remediation commands") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionDryRunExecutesNothing(t *testing.T) {
	confirmer := &scriptedConfirmer{}
	exec := &recordingExec{}
	s, out := newTestSession(PolicyReview, false, true, confirmer, exec)

	if _, err := s.Run(context.Background(), []string{"kubectl delete pod a"}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 0 {
		t.Errorf("dry run executed %v", exec.ran)
	}
	if len(confirmer.questions) != 0 {
		t.Errorf("dry run prompted: %v", confirmer.questions)
	}
	// Candidates are still displayed.
	if !strings.Contains(out.String(), "kubectl delete pod a") {
		t.Errorf("dry run did not display candidates: %q", out.String())
	}
}

func TestSessionOffPolicyExecutesNothing(t *testing.T) {
	confirmer := &scriptedConfirmer{answers: []bool{true, true}}
	exec := &recordingExec{}
	s, _ := newTestSession(PolicyOff, false, false, confirmer, exec)

	if _, err := s.Run(context.Background(), []string{"kubectl scale deployment api --replicas=3"}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 0 {
		t.Errorf("off policy executed %v", exec.ran)
	}
	if len(confirmer.questions) != 0 {
		t.Errorf("off policy prompted: %v", confirmer.questions)
	}
}

func TestSessionSingleCommandPromptsOnce(t *testing.T) {
	confirmer := &scriptedConfirmer{answers: []bool{true}}
	exec := &recordingExec{}
	s, _ := newTestSession(PolicyReview, false, false, confirmer, exec)

	if _, err := s.Run(context.Background(), []string{"kubectl scale deployment api --replicas=3"}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(confirmer.questions) != 1 {
		t.Fatalf("asked %d questions, want 1: %v", len(confirmer.questions), confirmer.questions)
	}
	if len(exec.ran) != 1 {
		t.Errorf("ran %v, want the one command", exec.ran)
	}
}

func TestSessionBatchDeclineRunsNothing(t *testing.T) {
	confirmer := &scriptedConfirmer{answers: []bool{false}}
	exec := &recordingExec{}
	s, out := newTestSession(PolicyReview, false, false, confirmer, exec)

	commands := []string{
		"kubectl scale deployment api --replicas=3",
		"kubectl rollout restart deployment/api",
	}
	if _, err := s.Run(context.Background(), commands); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 0 {
		t.Errorf("batch decline still ran %v", exec.ran)
	}
	if !strings.Contains(out.String(), "Batch declined") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionBatchApprovalSkipsPerCommandPrompts(t *testing.T) {
	confirmer := &scriptedConfirmer{answers: []bool{true}}
	exec := &recordingExec{}
	s, _ := newTestSession(PolicyReview, false, false, confirmer, exec)

	commands := []string{
		"kubectl scale deployment api --replicas=3",
		"kubectl rollout restart deployment/api",
	}
	if _, err := s.Run(context.Background(), commands); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(confirmer.questions) != 1 {
		t.Errorf("asked %d questions, want 1 (batch only): %v", len(confirmer.questions), confirmer.questions)
	}
	if len(exec.ran) != 2 {
		t.Errorf("ran %v, want both commands", exec.ran)
	}
}

func TestSessionRiskyCommandNeedsOwnConfirmationInsideBatch(t *testing.T) {
	// Approve the batch, then decline the risky member.
	confirmer := &scriptedConfirmer{answers: []bool{true, false}}
	exec := &recordingExec{}
	s, _ := newTestSession(PolicyReview, false, false, confirmer, exec)

	commands := []string{
		"kubectl scale deployment api --replicas=3",
		"kubectl delete pod broken -n default",
	}
	if _, err := s.Run(context.Background(), commands); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if len(confirmer.questions) != 2 {
		t.Fatalf("asked %d questions, want batch + risky: %v", len(confirmer.questions), confirmer.questions)
	}
	if !strings.Contains(confirmer.questions[1], "risky") {
		t.Errorf("risky prompt = %q", confirmer.questions[1])
	}
	if len(exec.ran) != 1 || exec.ran[0] != commands[0] {
		t.Errorf("ran %v, want only the safe command", exec.ran)
	}
}

func TestSessionYesSkipsAllPrompts(t *testing.T) {
	confirmer := &scriptedConfirmer{}
	exec := &recordingExec{}
	s, _ := newTestSession(PolicyReview, true, false, confirmer, exec)

	commands := []string{
		"kubectl delete pod broken -n default",
		"kubectl scale deployment api --replicas=3",
	}
	if _, err := s.Run(context.Background(), commands); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(confirmer.questions) != 0 {
		t.Errorf("--yes still prompted: %v", confirmer.questions)
	}
	if len(exec.ran) != 2 {
		t.Errorf("ran %v, want both", exec.ran)
	}
}

func TestSessionSafePolicyBlocksEvenWithYes(t *testing.T) {
	confirmer := &scriptedConfirmer{}
	exec := &recordingExec{}
	s, _ := newTestSession(PolicySafe, true, false, confirmer, exec)

	commands := []string{
		"kubectl delete pod broken -n default",
		"kubectl scale deployment api --replicas=3",
		"kubectl get pods",
	}
	if _, err := s.Run(context.Background(), commands); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 1 || exec.ran[0] != commands[1] {
		t.Errorf("ran %v, want only the safe-listed command", exec.ran)
	}
}

func TestSessionSafePolicyNothingEligible(t *testing.T) {
	confirmer := &scriptedConfirmer{}
	exec := &recordingExec{}
	s, out := newTestSession(PolicySafe, false, false, confirmer, exec)

	if _, err := s.Run(context.Background(), []string{"kubectl delete pod broken"}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 0 {
		t.Errorf("ran %v", exec.ran)
	}
	if !strings.Contains(out.String(), "No commands are eligible") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSessionDeclinedSingleCommandIsSkipped(t *testing.T) {
	confirmer := &scriptedConfirmer{answers: []bool{false}}
	exec := &recordingExec{}
	s, out := newTestSession(PolicyReview, false, false, confirmer, exec)

	if _, err := s.Run(context.Background(), []string{"kubectl scale deployment api --replicas=3"}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(exec.ran) != 0 {
		t.Errorf("ran %v after decline", exec.ran)
	}
	if !strings.Contains(out.String(), "Skipped") {
		t.Errorf("output = %q", out.String())
	}
}
