package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

const fetchTimeout = 60 * time.Second

var httpClient = &http.Client{
	Timeout: fetchTimeout,
	Transport: &http.Transport{
		DisableCompression: false,
	},
}

// FromURL fetches a single web page and extracts its main textual content.
// Only the given page is fetched, links are never followed.
func FromURL(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("url has no host")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("access forbidden (403): the website blocked the request")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited (429): too many requests, try again later")
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") &&
		!strings.Contains(contentType, "application/xhtml+xml") &&
		!strings.Contains(contentType, "text/plain") {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	var body io.Reader = io.LimitReader(resp.Body, MaxUploadBytes)
	// Go's transport decompresses gzip transparently but not brotli.
	if strings.Contains(resp.Header.Get("Content-Encoding"), "br") {
		body = brotli.NewReader(body)
	}
	utf8Body, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("charset detection failed: %w", err)
	}
	raw, err := io.ReadAll(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}

	if strings.Contains(contentType, "text/plain") {
		text := normalizeWhitespace(string(raw))
		return &Result{Text: text, WordCount: len(strings.Fields(text))}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("html parse failed: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").Text())
	content := extractMainContent(doc.Selection)
	if len(content) < 50 {
		content = normalizeWhitespace(doc.Find("body").Text())
	}
	return &Result{
		Text:      content,
		Title:     title,
		WordCount: len(strings.Fields(content)),
	}, nil
}

// extractMainContent strips boilerplate and prefers semantic containers over
// the raw body text.
func extractMainContent(selection *goquery.Selection) string {
	doc := selection.Clone()
	doc.Find("script, style, nav, footer, header, aside, .nav, .navbar, .footer, .header, .sidebar, .advertisement, .ads, .skip-link").Remove()

	contentSelectors := []string{
		"main",
		"article",
		"[role='main']",
		".main-content",
		".content",
		"#content",
		".post",
		".entry",
		"body",
	}

	var content strings.Builder
	found := false
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 100 {
				content.WriteString(text)
				content.WriteString("\n\n")
				found = true
			}
		})
		if found {
			break
		}
	}
	if !found {
		content.WriteString(doc.Find("body").Text())
	}

	return normalizeWhitespace(content.String())
}
