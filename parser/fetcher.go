package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"bouncer/apperrors"
	"bouncer/config"
	"bouncer/httpclient"
)

const USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

// Fetcher downloads evidence pages. FetchMode "http" issues a plain GET
// with a browser user agent; "rendered" drives headless Chrome for pages
// that only produce content client-side. Both modes share the same timeout
// budget.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	rendered bool
}

func NewFetcher(cfg config.SummarizerConfig) *Fetcher {
	return &Fetcher{
		client:   httpclient.New(httpclient.Config{Timeout: cfg.FetchTimeout()}),
		timeout:  cfg.FetchTimeout(),
		rendered: cfg.FetchMode == "rendered",
	}
}

// FetchHTML retrieves the raw HTML of url.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	if f.rendered {
		return RenderHTML(ctx, url, f.timeout)
	}
	return f.fetchPlain(ctx, url)
}

func (f *Fetcher) fetchPlain(ctx context.Context, url string) (string, error) {
	const op = "parser.FetchHTML"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Wrap(apperrors.CodeTimeout, op, "page fetch canceled", ctx.Err())
		}
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "page fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("page returned status %d", resp.StatusCode))
	}

	const maxBodySize = 10 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "page body read failed", err)
	}
	return string(body), nil
}
