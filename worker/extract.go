package worker

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/corrinfell/politecrawl/urlutil"
)

// isBinaryContentType reports whether contentType names a format with no
// outbound links worth tokenizing (images, video, audio, fonts, archives).
func isBinaryContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	switch {
	case strings.HasPrefix(contentType, "image/"),
		strings.HasPrefix(contentType, "video/"),
		strings.HasPrefix(contentType, "audio/"),
		strings.HasPrefix(contentType, "font/"):
		return true
	}

	switch contentType {
	case "application/pdf", "application/zip", "application/x-zip-compressed",
		"application/gzip", "application/vnd.rar", "application/x-7z-compressed",
		"application/octet-stream":
		return true
	}
	return false
}

// extractLinks tokenizes HTML from body, resolving every a[href] against
// baseURL, keeping only http(s) schemes, and deduplicating the result.
func extractLinks(body io.Reader, baseURL *url.URL) ([]string, error) {
	tokenizer := html.NewTokenizer(body)
	seen := make(map[string]bool)
	var links []string
	var errs []error

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if len(errs) > 0 {
				return links, fmt.Errorf("encountered %d parse errors (first: %w)", len(errs), errs[0])
			}
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				href := attr.Val
				if href == "" {
					href = baseURL.String()
				}

				hrefURL, err := url.Parse(href)
				if err != nil {
					errs = append(errs, fmt.Errorf("parse href %q: %w", href, err))
					continue
				}
				resolved := baseURL.ResolveReference(hrefURL).String()

				if !urlutil.IsHTTPScheme(resolved) {
					continue
				}
				normalized, err := urlutil.Normalize(resolved)
				if err != nil {
					errs = append(errs, fmt.Errorf("normalize URL %q: %w", resolved, err))
					continue
				}
				if !seen[normalized] {
					seen[normalized] = true
					links = append(links, normalized)
				}
			}
		}
	}
}
