package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/torosent/capfire/internal/search"
)

var (
	passMark = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
)

// SearchHeader describes a search before it starts.
type SearchHeader struct {
	RunHeader
	Options search.Options
}

// PrintSearchHeader prints the banner shown before the first probe.
func PrintSearchHeader(w io.Writer, h SearchHeader) {
	o := h.Options
	fmt.Fprintln(w, h.Title)
	fmt.Fprintf(w, "Started at: %s\n", h.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Endpoint: %s\n", h.Endpoint)
	fmt.Fprintf(w, "Method: %s\n", o.Method)
	fmt.Fprintf(w, "Requests per test: %d\n", o.Requests)
	fmt.Fprintf(w, "Success threshold: %.1f%%\n", o.Threshold)
	if o.Method == "linear" {
		fmt.Fprintf(w, "Testing from %d to %d concurrency (step: %d)\n", o.Start, o.Max, o.Step)
	} else {
		fmt.Fprintf(w, "Testing from %d to %d concurrency\n", o.Start, o.Max)
	}
	fmt.Fprintln(w, rule)
}

// PrintProbe prints the verdict for one tested level, with the full run
// report when verbose is set.
func PrintProbe(w io.Writer, p search.Probe, verbose bool) {
	if verbose {
		PrintReport(w, fmt.Sprintf("Concurrency Level: %d", p.Concurrency), p.Stats)
	}
	mark, verdict := passMark("✓"), "PASSED"
	if !p.Passed {
		mark, verdict = failMark("✗"), "FAILED"
	}
	fmt.Fprintf(w, "%s Concurrency %d: %.1f%% success - %s\n", mark, p.Concurrency, p.Stats.SuccessPercent(), verdict)
}

// MaxConcurrencyText states the search outcome in one line.
func MaxConcurrencyText(res search.Result) string {
	switch {
	case !res.Found:
		return fmt.Sprintf("not found: no level met the %.1f%% success threshold", res.Threshold)
	case res.CeilingUnknown:
		return fmt.Sprintf(">= %d (no failing level up to --max %d, increase --max)", res.BestKnownGood, res.Max)
	default:
		return strconv.Itoa(res.BestKnownGood)
	}
}

// PrintSearchSummary prints the final result, the probe history when
// verbose is set, and the verification run if one was made.
func PrintSearchSummary(w io.Writer, res search.Result, verbose bool) {
	if verbose && len(res.History) > 0 {
		fmt.Fprintln(w, "\n"+rule)
		fmt.Fprintln(w, "TESTED LEVELS")
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, historyTable(res.History))
	}

	if v := res.Verification; v != nil {
		fmt.Fprintln(w, "\n"+rule)
		fmt.Fprintln(w, "FINAL VERIFICATION TEST")
		fmt.Fprintln(w, rule)
		PrintProbe(w, *v, verbose)
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Maximum Concurrency (>= %.1f%% success): %s\n", res.Threshold, MaxConcurrencyText(res))
	fmt.Fprintf(w, "Levels tested: %d in %.1fs\n", res.Iterations, res.Elapsed.Seconds())
	if res.IterationLimitHit {
		fmt.Fprintln(w, "Iteration limit reached before the search converged")
	}
	if v := res.Verification; v != nil {
		fmt.Fprintln(w, "Final Test Results:")
		fmt.Fprintf(w, "  - Success Rate: %.1f%%\n", v.Stats.SuccessPercent())
		fmt.Fprintf(w, "  - Successful Requests: %d/%d\n", v.Stats.Succeeded, v.Stats.Total)
		fmt.Fprintf(w, "  - Average Response Time: %.1fms\n", v.Stats.MeanMs)
		fmt.Fprintf(w, "  - Throughput: %.2f requests/second\n", v.Stats.ThroughputRPS)
	}
	fmt.Fprintln(w, rule)
}

func historyTable(history []search.Probe) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Concurrency", "Success %", "Avg (ms)", "P95 (ms)", "RPS", "Result").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			return style.Align(lipgloss.Right)
		})
	for _, p := range history {
		verdict := "PASS"
		if !p.Passed {
			verdict = "FAIL"
		}
		t.Row(
			strconv.Itoa(p.Concurrency),
			fmt.Sprintf("%.1f%%", p.Stats.SuccessPercent()),
			fmt.Sprintf("%.1f", p.Stats.MeanMs),
			fmt.Sprintf("%.1f", p.Stats.P95Ms),
			fmt.Sprintf("%.2f", p.Stats.ThroughputRPS),
			verdict,
		)
	}
	return t.String()
}
