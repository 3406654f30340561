// Package cluster wraps kubectl as the data source for all cluster state.
//
// kfix deliberately shells out to kubectl instead of talking to the API
// server directly: the user's kubeconfig, auth plugins and context handling
// all come for free, and diagnose output stays identical to what the
// operator would see running the commands by hand.
package cluster

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kfix-sh/kfix/internal/logging"
)

// DefaultTimeout bounds every kubectl invocation.
const DefaultTimeout = 30 * time.Second

// Result holds the output of one kubectl invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// QueryError is returned when kubectl is missing, times out, or exits
// non-zero while the caller asked for a checked run.
type QueryError struct {
	Args []string
	Msg  string
	Err  error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *QueryError) Unwrap() error { return e.Err }

// Runner is the narrow interface the scanner and diagnostics gatherers
// consume. Run executes kubectl with the given arguments. When check is
// false, a non-zero exit is returned as data (Result.ExitCode) rather
// than an error, so callers can treat "no data" as an explicit branch.
type Runner interface {
	Run(ctx context.Context, args []string, check bool) (Result, error)
}

// KubectlRunner runs kubectl as a subprocess with a per-call timeout and
// an optional result cache.
type KubectlRunner struct {
	kubeContext string
	timeout     time.Duration
	cache       *Cache
	log         *slog.Logger
}

// NewRunner creates a runner. kubeContext may be empty to use the current
// kubeconfig context. cache may be nil to disable caching (watch mode).
func NewRunner(kubeContext string, cache *Cache) *KubectlRunner {
	return &KubectlRunner{
		kubeContext: kubeContext,
		timeout:     DefaultTimeout,
		cache:       cache,
		log:         logging.Component("kubectl"),
	}
}

// Run executes kubectl with the given arguments.
func (r *KubectlRunner) Run(ctx context.Context, args []string, check bool) (Result, error) {
	if r.kubeContext != "" {
		args = append([]string{"--context", r.kubeContext}, args...)
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(args); ok {
			r.log.Debug("cache hit", "args", strings.Join(args, " "))
			return r.finish(args, res, check)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "kubectl", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running kubectl", "args", strings.Join(args, " "))
	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{}, &QueryError{Args: args, Msg: fmt.Sprintf("kubectl command timed out after %s", r.timeout)}
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	switch e := err.(type) {
	case nil:
	case *exec.ExitError:
		res.ExitCode = e.ExitCode()
	default:
		return Result{}, &QueryError{Args: args, Msg: "kubectl not found, please install kubectl", Err: err}
	}

	if r.cache != nil {
		r.cache.Set(args, res)
	}
	return r.finish(args, res, check)
}

func (r *KubectlRunner) finish(args []string, res Result, check bool) (Result, error) {
	if check && res.ExitCode != 0 {
		return res, &QueryError{
			Args: args,
			Msg:  fmt.Sprintf("kubectl failed: %s", strings.TrimSpace(res.Stderr)),
		}
	}
	return res, nil
}

// CheckAccess reports whether the cluster answers a basic probe. It is the
// only place a query failure is meant to become fatal: scans refuse to
// start against an unreachable cluster.
func CheckAccess(ctx context.Context, r Runner) bool {
	res, err := r.Run(ctx, []string{"cluster-info"}, false)
	if err != nil {
		return false
	}
	return res.ExitCode == 0
}
