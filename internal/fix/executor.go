package fix

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/google/shlex"

	"github.com/kfix-sh/kfix/internal/logging"
)

// CommandTimeout is the hard wall-clock limit per remediation command.
const CommandTimeout = 60 * time.Second

// ExecutionResult records the outcome of one command. Failures are
// isolated per command and never abort the batch.
type ExecutionResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Err      error
}

// Success reports whether the command ran and exited zero.
func (r ExecutionResult) Success() bool {
	return r.Err == nil && !r.TimedOut && r.ExitCode == 0
}

// Executor runs approved remediation commands. Commands are tokenized
// and executed argv-style — never through a shell — so metacharacters in
// resource names stay inert.
type Executor struct {
	timeout time.Duration
	log     *slog.Logger

	// newCommand is swapped in tests to avoid invoking real kubectl.
	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecutor creates an executor with the default timeout.
func NewExecutor() *Executor {
	return &Executor{
		timeout:    CommandTimeout,
		log:        logging.Component("fix-executor"),
		newCommand: exec.CommandContext,
	}
}

// Execute runs a single command and captures stdout and stderr
// separately.
func (e *Executor) Execute(ctx context.Context, command string) ExecutionResult {
	result := ExecutionResult{Command: command}

	tokens, err := shlex.Split(command)
	if err != nil {
		result.Err = fmt.Errorf("tokenize command: %w", err)
		return result
	}
	if len(tokens) == 0 {
		result.Err = fmt.Errorf("empty command")
		return result
	}
	if tokens[0] != "kubectl" {
		result.Err = fmt.Errorf("refusing to run non-kubectl command %q", tokens[0])
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := e.newCommand(runCtx, tokens[0], tokens[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log.Info("executing remediation command", "command", command)
	runErr := cmd.Run()

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.Err = fmt.Errorf("command timed out after %s", e.timeout)
		return result
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else if runErr != nil {
		result.Err = runErr
	}

	e.log.Info("remediation command finished",
		"command", command, "exit_code", result.ExitCode, "timed_out", result.TimedOut)
	return result
}

// ExecuteBatch runs commands sequentially in the given order. A failing
// command is recorded and the batch continues; there is no parallelism,
// no reordering and no retry.
func (e *Executor) ExecuteBatch(ctx context.Context, commands []string) []ExecutionResult {
	results := make([]ExecutionResult, 0, len(commands))
	for _, cmd := range commands {
		results = append(results, e.Execute(ctx, cmd))
	}
	return results
}
