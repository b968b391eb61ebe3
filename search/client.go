package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"bouncer/apperrors"
	"bouncer/config"
	"bouncer/httpclient"
	"bouncer/models"
)

// ProviderMaxResults is the hard per-call cap of the Custom Search JSON API.
// Requested limits above it are clamped, both here and at the API boundary,
// so callers are never silently under-delivered.
const ProviderMaxResults = 10

// Client queries the Google Custom Search JSON API for pages mentioning a
// piece of text (a name or an email address).
type Client struct {
	base     *httpclient.BaseClient
	apiKey   string
	engineID string
}

func NewClient(cfg config.TextSearchConfig, creds config.Credentials) *Client {
	return &Client{
		base:     httpclient.NewBaseClient(cfg.BaseURL, cfg.Timeout()),
		apiKey:   creds.CustomSearchAPIKey,
		engineID: creds.SearchEngineID,
	}
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns up to limit hits for query. Missing fields on provider
// items are tolerated and mapped to empty strings.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	const op = "search.Search"

	if c.apiKey == "" || c.engineID == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, op,
			"custom search credentials are not configured (CUSTOM_SEARCH_API_KEY, SEARCH_ENGINE_ID)")
	}

	if limit <= 0 || limit > ProviderMaxResults {
		limit = ProviderMaxResults
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", "intext:"+query)
	params.Set("num", strconv.Itoa(limit))

	req, err := c.base.NewRequest(ctx, http.MethodGet, "", params, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, op, "search request failed", err)
	}
	defer resp.Body.Close()

	const maxBodySize = 5 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, op, "search response read failed", err)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, op, "search response decode failed", err)
	}
	if out.Error != nil {
		return nil, apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("search provider error: %s (%d)", out.Error.Message, out.Error.Code))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("search provider returned status %d", resp.StatusCode))
	}

	results := make([]models.SearchResult, 0, len(out.Items))
	for _, item := range out.Items {
		results = append(results, models.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
