// Package tui provides the Bubble Tea terminal UI for politecrawl,
// displaying live crawl progress and a styled summary of results.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/corrinfell/politecrawl/engine"
	"github.com/corrinfell/politecrawl/model"
)

// Model is the Bubble Tea model for the crawl TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	eng        *engine.Engine
	spinner    spinner.Model
	progressCh <-chan model.CrawlStats

	stats    model.CrawlStats
	quitting bool
	done     bool
	results  []model.CrawlResult
	err      error
	width    int
}

// NewModel creates a TUI model wired to the given Engine and its Subscribe
// channel.
func NewModel(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, progressCh <-chan model.CrawlStats) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		eng:        eng,
		spinner:    spin,
		progressCh: progressCh,
	}
}

// Init starts the spinner, the crawl, and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startCrawl(), waitForProgress(m.progressCh))
}

// startCrawl returns a tea.Cmd that runs the Engine and sends CrawlDoneMsg.
func (m Model) startCrawl() tea.Cmd {
	return func() tea.Msg {
		err := m.eng.Start(m.ctx)
		if err != nil {
			err = fmt.Errorf("crawl: %w", err)
		}
		return CrawlDoneMsg{Err: err}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case CrawlProgressMsg:
		m.stats = model.CrawlStats(msg)
		return m, waitForProgress(m.progressCh)

	case CrawlDoneMsg:
		m.done = true
		m.err = msg.Err
		m.stats = m.eng.GetStats()
		m.results = m.eng.GetResults()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.err == nil {
		return RenderSummary(m.results, m.stats)
	}
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	return fmt.Sprintf("%s Crawling... total %d, successful %d, failed %d, in progress %d\n",
		m.spinner.View(), m.stats.TotalURLs, m.stats.Successful, m.stats.Failed, m.stats.InProgress)
}

// HasFailures reports whether the crawl recorded any failed fetches.
func (m Model) HasFailures() bool {
	return m.stats.Failed > 0
}

// GetStats returns the final CrawlStats snapshot for output formatting.
func (m Model) GetStats() model.CrawlStats {
	return m.stats
}

// GetResults returns the final CrawlResult list for output formatting.
func (m Model) GetResults() []model.CrawlResult {
	return m.results
}
