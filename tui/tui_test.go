package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/corrinfell/politecrawl/crawlconfig"
	"github.com/corrinfell/politecrawl/engine"
	"github.com/corrinfell/politecrawl/model"
)

func mustNewEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg, err := crawlconfig.DefaultConfig().Validate()
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	eng, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine.New() error: %v", err)
	}
	return eng
}

func TestNewModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressCh := make(chan model.CrawlStats, 10)
	eng := mustNewEngine(t)

	m := NewModel(ctx, cancel, eng, progressCh)

	if m.ctx != ctx {
		t.Error("expected ctx to be stored in model")
	}
	if m.cancel == nil {
		t.Error("expected cancel to be stored in model")
	}
	if m.eng != eng {
		t.Error("expected engine to be stored in model")
	}
	if m.progressCh == nil {
		t.Error("expected progressCh to be stored in model")
	}
	if m.done {
		t.Error("expected done to be false initially")
	}
}

func TestHasFailures(t *testing.T) {
	tests := []struct {
		name  string
		stats model.CrawlStats
		want  bool
	}{
		{name: "zero value", stats: model.CrawlStats{}, want: false},
		{name: "no failures", stats: model.CrawlStats{TotalURLs: 5, Successful: 5}, want: false},
		{name: "has failures", stats: model.CrawlStats{TotalURLs: 5, Successful: 3, Failed: 2}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Model{stats: tt.stats}
			if got := m.HasFailures(); got != tt.want {
				t.Errorf("HasFailures() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetResultsAndStats(t *testing.T) {
	results := []model.CrawlResult{{URL: "https://example.com/"}}
	stats := model.CrawlStats{TotalURLs: 1, Successful: 1}

	m := Model{results: results, stats: stats}
	if got := m.GetResults(); len(got) != 1 || got[0].URL != "https://example.com/" {
		t.Errorf("GetResults() = %v, want %v", got, results)
	}
	if got := m.GetStats(); got != stats {
		t.Errorf("GetStats() = %v, want %v", got, stats)
	}
}

func TestRenderSummaryNoResults(t *testing.T) {
	output := RenderSummary(nil, model.CrawlStats{TotalURLs: 10, Failed: 10})
	if output == "" {
		t.Error("expected non-empty output for no results")
	}
	if !strings.Contains(output, "No pages crawled") {
		t.Errorf("expected 'No pages crawled' in output, got: %s", output)
	}
}

func TestRenderSummaryWithResults(t *testing.T) {
	results := []model.CrawlResult{
		{URL: "https://example.com/", StatusCode: 200, ExtractedLinks: []string{"https://example.com/a"}},
		{URL: "https://example.com/a", StatusCode: 200},
	}
	stats := model.CrawlStats{TotalURLs: 2, Successful: 2, ElapsedTime: 2 * time.Second}

	output := RenderSummary(results, stats)
	if !strings.Contains(output, "example.com") {
		t.Errorf("expected a URL in output, got: %s", output)
	}
	if !strings.Contains(output, "Crawled 2 URLs") {
		t.Errorf("expected summary line in output, got: %s", output)
	}
}

func TestInitReturnsBatchCmd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressCh := make(chan model.CrawlStats, 10)
	eng := mustNewEngine(t)

	m := NewModel(ctx, cancel, eng, progressCh)
	cmd := m.Init()
	if cmd == nil {
		t.Error("Init() should return a non-nil batch command")
	}
}

func TestUpdateCrawlProgressMsg(t *testing.T) {
	m := Model{progressCh: make(chan model.CrawlStats, 10)}

	msg := CrawlProgressMsg(model.CrawlStats{TotalURLs: 5, Successful: 4, Failed: 1})
	updatedModel, cmd := m.Update(msg)
	updated := updatedModel.(Model)

	if updated.stats.TotalURLs != 5 || updated.stats.Successful != 4 || updated.stats.Failed != 1 {
		t.Errorf("stats = %+v, want total=5 successful=4 failed=1", updated.stats)
	}
	if cmd == nil {
		t.Error("expected non-nil cmd to re-subscribe to progress channel")
	}
}

func TestUpdateCrawlDoneMsg(t *testing.T) {
	eng := mustNewEngine(t)
	m := Model{eng: eng}

	updatedModel, _ := m.Update(CrawlDoneMsg{})
	updated := updatedModel.(Model)

	if !updated.done {
		t.Error("expected done=true after CrawlDoneMsg")
	}
}

func TestUpdateSpinnerTickMsg(t *testing.T) {
	m := Model{}
	updatedModel, _ := m.Update(spinner.TickMsg{})
	_ = updatedModel.(Model) // should not panic
}

func TestUpdateWindowSizeMsg(t *testing.T) {
	m := Model{}
	updatedModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	updated := updatedModel.(Model)

	if updated.width != 120 {
		t.Errorf("expected width=120, got %d", updated.width)
	}
}

func TestViewInProgress(t *testing.T) {
	m := Model{stats: model.CrawlStats{TotalURLs: 3, Successful: 1, Failed: 1, InProgress: 1}}
	output := m.View()
	if !strings.Contains(output, "Crawling") {
		t.Errorf("expected 'Crawling' in progress view, got: %s", output)
	}
	if !strings.Contains(output, "3") {
		t.Errorf("expected total count in view, got: %s", output)
	}
}

func TestViewDoneWithoutError(t *testing.T) {
	m := Model{
		done:    true,
		results: []model.CrawlResult{},
		stats:   model.CrawlStats{TotalURLs: 5, Successful: 5},
	}
	output := m.View()
	if !strings.Contains(output, "No pages crawled") {
		t.Errorf("expected summary view, got: %s", output)
	}
}

func TestViewDoneWithError(t *testing.T) {
	m := Model{
		done: true,
		err:  context.Canceled,
	}
	output := m.View()
	if !strings.Contains(output, "Error") {
		t.Errorf("expected error message in done view, got: %s", output)
	}
}
