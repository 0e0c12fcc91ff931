package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/corrinfell/politecrawl/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	urlStyle     = lipgloss.NewStyle()
)

// RenderSummary produces a Lip Gloss styled summary of a finished crawl:
// a table of every successfully fetched page, plus an aggregate line.
func RenderSummary(results []model.CrawlResult, stats model.CrawlStats) string {
	var builder strings.Builder

	if len(results) == 0 {
		builder.WriteString(errorStyle.Render("No pages crawled."))
		builder.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.URL,
				fmt.Sprintf("%d", r.StatusCode),
				fmt.Sprintf("%d", len(r.ExtractedLinks)),
			})
		}

		resultsTable := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("URL", "Status", "Links").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return urlStyle
			}).
			Rows(rows...)

		builder.WriteString(resultsTable.Render())
		builder.WriteString("\n\n")
	}

	summaryStyle := successStyle
	if stats.Failed > 0 {
		summaryStyle = titleStyle
	}
	builder.WriteString(summaryStyle.Render(fmt.Sprintf(
		"Crawled %d URLs: %d successful, %d failed, in %s",
		stats.TotalURLs, stats.Successful, stats.Failed,
		stats.ElapsedTime.Round(1_000_000),
	)))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"average response time: %.1fms", stats.AverageResponseTimeMs,
	)))
	builder.WriteString("\n")

	return builder.String()
}
