// Package worker performs a single fetch-and-extract operation: an HTTP GET
// with transport retries, manual content-decoding, and outbound-link
// extraction.
package worker

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/corrinfell/politecrawl/crawlconfig"
	"github.com/corrinfell/politecrawl/model"
)

// Worker fetches URLs on behalf of the Engine. One Worker is safe for
// concurrent use by many in-flight Crawl calls; it holds no per-URL state.
type Worker struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// New builds a Worker from the crawl's configuration. The returned client's
// transport retries transport errors per cfg.MaxRetries/BackoffMultiplier
// and never follows automatic content decoding, since Accept-Encoding is
// set explicitly and gzip/brotli bodies are decoded by hand.
func New(cfg crawlconfig.CrawlConfig) *Worker {
	base := &http.Transport{}
	return &Worker{
		client: &http.Client{
			Transport: newRetryTransport(base, cfg.MaxRetries, cfg.Politeness.BackoffMultiplier),
			// Redirects are followed per the client default; the terminal
			// URL is read back off resp.Request.URL.
		},
		userAgent: cfg.UserAgent,
		timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

// Crawl fetches rawURL and extracts its outbound links. A non-nil error is
// always a *CrawlError.
func (w *Worker) Crawl(ctx context.Context, rawURL string) (model.CrawlResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.CrawlResult{}, &CrawlError{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := w.client.Do(req)
	if err != nil {
		kind := KindTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return model.CrawlResult{}, &CrawlError{URL: rawURL, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return model.CrawlResult{}, &CrawlError{URL: rawURL, Kind: KindTransport, Err: err}
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return model.CrawlResult{}, &CrawlError{URL: rawURL, Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	var links []string
	if !isBinaryContentType(resp.Header.Get("Content-Type")) {
		extracted, extractErr := extractLinks(bytes.NewReader(raw), resp.Request.URL)
		if extractErr != nil {
			return model.CrawlResult{}, &CrawlError{URL: rawURL, Kind: KindHTMLParse, Err: extractErr}
		}
		links = extracted
	}

	return model.CrawlResult{
		URL:             resp.Request.URL.String(),
		StatusCode:      resp.StatusCode,
		ResponseHeaders: headers,
		Body:            string(raw),
		ExtractedLinks:  links,
		FetchedAt:       time.Now(),
	}, nil
}

// decodeBody returns a reader over resp.Body decoded per its
// Content-Encoding header. Automatic decoding is disabled once a caller
// sets Accept-Encoding explicitly, so this is done by hand for the two
// encodings the crawler advertises.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		return gz, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
