package result

import (
	"fmt"
	"io"

	"github.com/corrinfell/politecrawl/model"
)

// PrintSummary writes a block per result (URL, status and link-count lines,
// with blank lines between blocks) plus an aggregate summary line to w.
func PrintSummary(w io.Writer, results []model.CrawlResult, stats model.CrawlStats) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	if len(results) == 0 {
		writef("No pages crawled.\n")
	} else {
		writef("Crawled pages:\n")
		for i, r := range results {
			writef("  URL: %s\n", r.URL)
			writef("  Status: %d\n", r.StatusCode)
			writef("  Links found: %d\n", len(r.ExtractedLinks))
			if i < len(results)-1 {
				writef("\n")
			}
		}
	}
	writef("Checked %d URLs, %d successful, %d failed\n",
		stats.TotalURLs, stats.Successful, stats.Failed)
}
