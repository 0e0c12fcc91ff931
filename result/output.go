// Package result writes a finished crawl's CrawlResult log as JSON or CSV,
// and prints a console summary of its CrawlStats.
package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/corrinfell/politecrawl/model"
)

// WriteJSON writes results as a formatted JSON array to w. Uses flat array
// format (not wrapped with metadata) for simpler downstream consumption.
func WriteJSON(w io.Writer, results []model.CrawlResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteCSV writes results as CSV to w. Always includes a header row, even
// if there are no results. Column order: url, status_code, fetched_at,
// link_count. The response body and full header map are omitted from CSV
// (no natural tabular shape); use WriteJSON for the complete record.
func WriteCSV(w io.Writer, results []model.CrawlResult) error {
	cw := csv.NewWriter(w)

	header := []string{"url", "status_code", "fetched_at", "link_count"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.URL,
			statusCodeStr(r.StatusCode),
			r.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
			strconv.Itoa(len(r.ExtractedLinks)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record for %s: %w", r.URL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// statusCodeStr converts an HTTP status code to a string, returning empty
// for 0 (no HTTP status recorded).
func statusCodeStr(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
