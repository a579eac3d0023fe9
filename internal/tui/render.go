package tui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"ethoscore/internal/loan"
)

// RenderDecision writes a decision the way the desk shows it: the mode
// badge, the decision line, and in fair mode the fairness analysis.
func RenderDecision(w io.Writer, view loan.DecisionView) {
	fmt.Fprintf(w, "[%s]\n", view.Mode)

	mark := "✗"
	if view.Affirmative {
		mark = "✓"
	}
	fmt.Fprintf(w, "%s Decision: %s\n", mark, view.Decision)
	if view.Rationale != "" {
		fmt.Fprintf(w, "  %s\n", view.Rationale)
	}

	f := view.Fairness
	if f == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fairness Analysis")
	fmt.Fprintf(w, "  Approval probability: %s\n", f.ApprovalProbability)
	fmt.Fprintf(w, "  Model accuracy:       %s\n", f.ModelAccuracy)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Key Factors")
	renderTable(w, f.KeyFactors, f.KeyFactorsNote)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Suggested Improvements")
	renderTable(w, f.Suggestions, f.SuggestionsNote)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Initial Metrics")
	fmt.Fprintln(w, indent(f.InitialMetrics))
	fmt.Fprintln(w, "Post-Mitigation Metrics")
	fmt.Fprintln(w, indent(f.PostMetrics))
}

func renderTable(w io.Writer, t loan.Table, note string) {
	if t.Empty() {
		fmt.Fprintf(w, "  %s\n", note)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\n", strings.Join(t.Header, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintf(tw, "  %s\n", strings.Join(row, "\t"))
	}
	tw.Flush()
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
