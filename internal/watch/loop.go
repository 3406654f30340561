// Package watch repeats scans on a fixed interval and reports issues
// appearing and resolving between cycles.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/kfix-sh/kfix/internal/logging"
	"github.com/kfix-sh/kfix/internal/scan"
)

// ScanFunc produces one cycle's findings. Implementations must hit live
// cluster state; the loop never caches.
type ScanFunc func(ctx context.Context) []scan.Finding

// RenderFunc renders one cycle. added is nil on the first cycle (there
// is no prior snapshot to diff against); on later cycles it marks the
// identities that were not present in the previous cycle.
type RenderFunc func(findings []scan.Finding, added map[scan.Identity]bool, first bool)

// SummaryFunc reports the new/resolved counts after each diffed cycle.
type SummaryFunc func(newCount, resolvedCount int)

// Config wires a Loop.
type Config struct {
	Scan     ScanFunc
	Interval time.Duration
	Render   RenderFunc
	Summary  SummaryFunc
}

// Loop runs scan cycles until the context is cancelled.
type Loop struct {
	cfg  Config
	prev scan.Snapshot
	log  *slog.Logger
}

// NewLoop creates a watch loop.
func NewLoop(cfg Config) *Loop {
	return &Loop{
		cfg: cfg,
		log: logging.Component("watch"),
	}
}

// Run executes scan cycles separated by a fixed-delay sleep. Only the
// immediately preceding snapshot is retained for diffing. Cancellation
// is cooperative: it is honored at the sleep boundary, and an in-flight
// scan finishes or times out on its own terms. Run returns nil on
// cancellation.
func (l *Loop) Run(ctx context.Context) error {
	first := true
	for {
		findings := l.cfg.Scan(ctx)
		current := scan.NewSnapshot(findings)

		if first {
			l.cfg.Render(findings, nil, true)
			first = false
		} else {
			added, resolved := scan.Diff(l.prev, current)
			addedSet := make(map[scan.Identity]bool, len(added))
			for _, id := range added {
				addedSet[id] = true
			}
			l.cfg.Render(findings, addedSet, false)
			if l.cfg.Summary != nil {
				l.cfg.Summary(len(added), len(resolved))
			}
		}
		l.prev = current

		select {
		case <-ctx.Done():
			l.log.Debug("watch loop cancelled")
			return nil
		case <-time.After(l.cfg.Interval):
		}
	}
}
