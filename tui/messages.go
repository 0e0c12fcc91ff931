package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/corrinfell/politecrawl/model"
)

// CrawlProgressMsg carries a CrawlStats snapshot from the Engine's
// Subscribe channel.
type CrawlProgressMsg model.CrawlStats

// CrawlDoneMsg signals that Engine.Start has returned.
type CrawlDoneMsg struct {
	Err error
}

// waitForProgress returns a tea.Cmd that reads one snapshot from ch. When
// ch closes (Engine.Start has returned and torn down its subscribers), it
// returns a CrawlDoneMsg with a nil Err; the actual error comes from
// startCrawl's own command.
func waitForProgress(ch <-chan model.CrawlStats) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-ch
		if !ok {
			return CrawlDoneMsg{}
		}
		return CrawlProgressMsg(snapshot)
	}
}
