// Package output renders load-test and search results for people and for
// machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/torosent/capfire/internal/metrics"
)

const rule = "================================================================================"

// RunHeader describes the target of a load test.
type RunHeader struct {
	Title     string
	Endpoint  string
	Requests  int
	Timeout   time.Duration
	StartedAt time.Time
}

// PrintHeader prints the banner shown before the first run.
func PrintHeader(w io.Writer, h RunHeader) {
	fmt.Fprintln(w, h.Title)
	fmt.Fprintf(w, "Started at: %s\n", h.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Endpoint: %s\n", h.Endpoint)
	fmt.Fprintf(w, "Total Requests: %d\n", h.Requests)
	fmt.Fprintf(w, "Timeout: %s\n", h.Timeout)
}

// PrintReport outputs a human-readable summary of one run.
func PrintReport(w io.Writer, label string, stats metrics.Stats) {
	fmt.Fprintln(w, "\n"+rule)
	if label != "" {
		fmt.Fprintf(w, "Test: %s\n", label)
		fmt.Fprintln(w, rule)
	}
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d (%.1f%%)\n", stats.Succeeded, stats.SuccessPercent())
	failedPct := 0.0
	if stats.Total > 0 {
		failedPct = 100 - stats.SuccessPercent()
	}
	fmt.Fprintf(w, "Failed:            %d (%.1f%%)\n", stats.Failed, failedPct)

	fmt.Fprintln(w, "\nResponse Times (ms):")
	fmt.Fprintf(w, "  Average:         %.1f\n", stats.MeanMs)
	fmt.Fprintf(w, "  Median:          %.1f\n", stats.MedianMs)
	fmt.Fprintf(w, "  Min:             %.1f\n", stats.MinMs)
	fmt.Fprintf(w, "  Max:             %.1f\n", stats.MaxMs)
	fmt.Fprintf(w, "  P95:             %.1f\n", stats.P95Ms)
	fmt.Fprintf(w, "  P99:             %.1f\n", stats.P99Ms)

	fmt.Fprintln(w, "\nThroughput:")
	fmt.Fprintf(w, "  Requests/Second: %.2f\n", stats.ThroughputRPS)
	fmt.Fprintf(w, "  Duration:        %.2fs\n", stats.DurationMs/1000)

	if len(stats.StatusHistogram) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, bucket := range metrics.FlattenStatusHistogram(stats.StatusHistogram) {
			fmt.Fprintf(w, "  %s: %d\n", bucket.Label(), bucket.Count)
		}
	}

	if stats.Failed > 0 && len(stats.ErrorDetails) > 0 {
		fmt.Fprintln(w, "\nError Details:")
		for _, d := range metrics.SortedDetails(stats.ErrorDetails) {
			fmt.Fprintf(w, "  %s: %d\n", d.Detail, d.Count)
		}
	}
	fmt.Fprintln(w, rule)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunSummary is one row of the comparison table.
type RunSummary struct {
	Label string
	Stats metrics.Stats
}

// PrintComparison renders every run side by side.
func PrintComparison(w io.Writer, runs []RunSummary) {
	if len(runs) == 0 {
		return
	}
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "COMPARISON SUMMARY")
	fmt.Fprintln(w, rule)

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Test", "Success %", "Avg (ms)", "P95 (ms)", "P99 (ms)", "RPS").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	for _, run := range runs {
		t.Row(
			run.Label,
			fmt.Sprintf("%.1f%%", run.Stats.SuccessPercent()),
			fmt.Sprintf("%.1f", run.Stats.MeanMs),
			fmt.Sprintf("%.1f", run.Stats.P95Ms),
			fmt.Sprintf("%.1f", run.Stats.P99Ms),
			fmt.Sprintf("%.2f", run.Stats.ThroughputRPS),
		)
	}
	fmt.Fprintln(w, strings.TrimRight(t.String(), "\n"))
}
