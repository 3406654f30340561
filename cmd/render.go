package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	spin "github.com/tj/go-spin"

	"github.com/kfix-sh/kfix/internal/ai"
	"github.com/kfix-sh/kfix/internal/scan"
)

// renderFindings prints one cycle's unhealthy resources as a table.
// added marks identities that were not present in the previous watch
// cycle; it is nil outside watch mode and on the first cycle.
func renderFindings(w io.Writer, findings []scan.Finding, added map[scan.Identity]bool) {
	if len(findings) == 0 {
		fmt.Fprintln(w, color.GreenString("No unhealthy resources found."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAMESPACE\tNAME\tSTATUS\tREASON\t")
	for _, f := range findings {
		flag := ""
		if added[f.Identity()] {
			flag = color.YellowString("NEW")
		}
		ns := f.Namespace
		if ns == "" {
			ns = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", f.Kind, ns, f.Name, f.Status, f.Reason, flag)
	}
	tw.Flush()
}

// renderUsage prints the token footer after a diagnosis.
func renderUsage(w io.Writer, usage *ai.TokenUsage) {
	if usage == nil {
		return
	}
	fmt.Fprintf(w, "\n%s\n", color.New(color.Faint).Sprintf(
		"tokens: %d in / %d out (%s)", usage.InputTokens, usage.OutputTokens, usage.Model))
}

// spinner shows progress while a long call runs. Call the returned stop
// function when done.
func spinner(w io.Writer, message string) (stop func()) {
	s := spin.New()
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%*s\r", len(message)+2, "")
				return
			case <-time.After(100 * time.Millisecond):
				fmt.Fprintf(w, "\r%s %s", s.Next(), message)
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
