// Package main provides the politecrawl CLI entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/corrinfell/politecrawl/crawlconfig"
	"github.com/corrinfell/politecrawl/engine"
	"github.com/corrinfell/politecrawl/result"
	"github.com/corrinfell/politecrawl/tui"
)

// cliFlags holds parsed command-line flags.
type cliFlags struct {
	maxWorkers     int
	maxDepth       int
	requestsPerSec float64
	defaultDelayMs int64
	backoff        float64
	maxRetries     int
	timeoutMs      int64
	userAgent      string
	respectRobots  bool
	outputJSON     bool
	outputCSV      bool
	outputFile     string
}

// parseFlags parses command-line flags and returns the parsed values.
func parseFlags() *cliFlags {
	opts := &cliFlags{}
	flag.IntVar(&opts.maxWorkers, "workers", 10, "maximum number of concurrent fetch workers")
	flag.IntVar(&opts.maxDepth, "depth", 3, "maximum crawl depth from the seed URLs")
	flag.Float64Var(&opts.requestsPerSec, "rate-limit", 2, "maximum requests per second, per host")
	flag.Int64Var(&opts.defaultDelayMs, "delay-ms", 200, "minimum delay between requests to the same host, in milliseconds")
	flag.Float64Var(&opts.backoff, "backoff", 2.0, "retry backoff multiplier")
	flag.IntVar(&opts.maxRetries, "retries", 3, "maximum fetch attempts per URL, including the first; only transport-level errors are retried")
	flag.Int64Var(&opts.timeoutMs, "timeout-ms", 10_000, "per-request timeout in milliseconds")
	flag.StringVar(&opts.userAgent, "user-agent", "politecrawl/1.0 (+https://github.com/corrinfell/politecrawl)", "user agent string")
	flag.BoolVar(&opts.respectRobots, "respect-robots", true, "consult robots.txt before fetching")

	flag.BoolVar(&opts.outputJSON, "j", false, "output results as JSON")
	flag.BoolVar(&opts.outputJSON, "json", false, "output results as JSON")
	flag.BoolVar(&opts.outputCSV, "c", false, "output results as CSV")
	flag.BoolVar(&opts.outputCSV, "csv", false, "output results as CSV")
	flag.StringVar(&opts.outputFile, "o", "", "write JSON/CSV output to file")
	flag.StringVar(&opts.outputFile, "output", "", "write JSON/CSV output to file")

	flag.Parse()
	return opts
}

// validateFlags validates flag combinations and returns an error if invalid.
func validateFlags(opts *cliFlags) error {
	if opts.outputJSON && opts.outputCSV {
		return fmt.Errorf("--json and --csv are mutually exclusive")
	}
	return nil
}

// buildCrawlConfig creates a crawlconfig.CrawlConfig from flags.
func buildCrawlConfig(opts *cliFlags) crawlconfig.CrawlConfig {
	return crawlconfig.CrawlConfig{
		MaxWorkers:       opts.maxWorkers,
		MaxDepth:         opts.maxDepth,
		UserAgent:        opts.userAgent,
		RespectRobotsTxt: opts.respectRobots,
		Politeness: crawlconfig.PolitenessConfig{
			DefaultDelayMs:       opts.defaultDelayMs,
			MaxRequestsPerSecond: opts.requestsPerSec,
			BackoffMultiplier:    opts.backoff,
		},
		TimeoutMs:  opts.timeoutMs,
		MaxRetries: opts.maxRetries,
	}
}

// runTUI creates and runs the TUI, returning the final model.
func runTUI(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine) (tui.Model, error) {
	progressCh := eng.Subscribe()
	tuiModel := tui.NewModel(ctx, cancel, eng, progressCh)
	program := tea.NewProgram(tuiModel)

	finalModel, err := program.Run()
	if err != nil {
		return tui.Model{}, fmt.Errorf("run tui: %w", err)
	}

	return finalModel.(tui.Model), nil
}

// writeStructuredOutput handles writing JSON/CSV output to stdout or a file.
func writeStructuredOutput(opts *cliFlags, tuiModel tui.Model) error {
	results := tuiModel.GetResults()

	var writer io.Writer = os.Stdout
	if opts.outputFile != "" {
		outFile, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			if cerr := outFile.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "Error closing output file: %v\n", cerr)
			}
		}()
		writer = outFile
	}

	useJSON := opts.outputJSON || (!opts.outputCSV && opts.outputFile != "")
	if useJSON {
		if err := result.WriteJSON(writer, results); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		return nil
	}
	if err := result.WriteCSV(writer, results); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func main() {
	opts := parseFlags()

	if err := validateFlags(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: politecrawl [flags] <seed-url> [seed-url...]")
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	seeds := flag.Args()
	for _, seed := range seeds {
		parsed, err := url.Parse(seed)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			fmt.Fprintf(os.Stderr, "Invalid seed URL: %s\nURL must start with http:// or https://\n", seed)
			os.Exit(1)
		}
	}

	cfg := buildCrawlConfig(opts)
	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	eng.AddSeeds(seeds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finalTUIModel, err := runTUI(ctx, cancel, eng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.outputJSON || opts.outputCSV || opts.outputFile != "" {
		if err := writeStructuredOutput(opts, finalTUIModel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if finalTUIModel.HasFailures() {
		os.Exit(1)
	}
}
