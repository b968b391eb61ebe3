// Package facecheck implements the face-similarity lookup against
// facecheck.id: a multipart image upload followed by a bounded poll of the
// asynchronous search job.
package facecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"bouncer/apperrors"
	"bouncer/config"
	"bouncer/httpclient"
	"bouncer/logger"
	"bouncer/models"
)

// State of one search job as tracked by the client.
type State string

const (
	StateSubmitted State = "submitted"
	StateQueued    State = "queued"
	StatePolling   State = "polling"
	StateReady     State = "ready"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
)

// TopMatches is how many matches survive formatting, counted from the
// highest similarity score down.
const TopMatches = 3

// SleepFunc pauses between poll attempts. It must return early with the
// context error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client drives face-similarity searches. The poll cadence and attempt
// budget come from configuration; sleep is injectable so tests can run the
// whole budget without wall-clock delay.
type Client struct {
	base            *httpclient.BaseClient
	token           string
	testingMode     bool
	pollInterval    time.Duration
	maxPollAttempts int
	sleep           SleepFunc
}

// Option customizes a Client.
type Option func(*Client)

// WithSleepFunc replaces the inter-poll sleep. Intended for tests.
func WithSleepFunc(f SleepFunc) Option {
	return func(c *Client) { c.sleep = f }
}

func NewClient(cfg config.FaceSearchConfig, creds config.Credentials, opts ...Option) *Client {
	c := &Client{
		// The overall client timeout must cover a single upload or poll
		// round trip, not the whole job; the job ceiling is enforced by
		// the attempt budget.
		base:            httpclient.NewBaseClient(cfg.BaseURL, 30*time.Second),
		token:           creds.FacecheckAPIToken,
		testingMode:     cfg.TestingMode,
		pollInterval:    cfg.PollInterval(),
		maxPollAttempts: cfg.MaxPollAttempts,
		sleep:           sleepWithContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type uploadResponse struct {
	Error    string      `json:"error"`
	Code     json.Number `json:"code"`
	Message  string      `json:"message"`
	IDSearch string      `json:"id_search"`
}

type pollResponse struct {
	Error    string      `json:"error"`
	Code     json.Number `json:"code"`
	Message  string      `json:"message"`
	Progress int         `json:"progress"`
	Output   *struct {
		Items []models.FaceMatch `json:"items"`
	} `json:"output"`
}

// Search submits the image and polls the job until results arrive or the
// attempt budget runs out.
func (c *Client) Search(ctx context.Context, image []byte) ([]models.FaceMatch, error) {
	const op = "facecheck.Search"

	if c.token == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, op,
			"facecheck API token is not configured (FACECHECK_API_TOKEN)")
	}
	if c.testingMode {
		logger.Log.Warn("facecheck testing mode: results are inaccurate and queue wait is long, but credits are not deducted")
	}

	idSearch, err := c.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		out, err := c.poll(ctx, idSearch)
		if err != nil {
			logger.ErrorWithFields("facecheck search failed", logger.Fields{
				"id_search": idSearch,
				"state":     string(StateFailed),
				"attempt":   attempt,
				"error":     err.Error(),
			})
			return nil, err
		}
		if out.Output != nil {
			logger.InfoWithFields("facecheck search ready", logger.Fields{
				"id_search": idSearch,
				"state":     string(StateReady),
				"attempts":  attempt,
				"items":     len(out.Output.Items),
			})
			return out.Output.Items, nil
		}
		logger.DebugWithFields("facecheck search in progress", logger.Fields{
			"id_search": idSearch,
			"state":     string(StatePolling),
			"message":   out.Message,
			"progress":  out.Progress,
			"attempt":   attempt,
		})
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeTimeout, op, "face search canceled while polling", err)
		}
	}

	logger.WarnWithFields("facecheck search timed out", logger.Fields{
		"id_search": idSearch,
		"state":     string(StateTimedOut),
		"attempts":  c.maxPollAttempts,
	})
	return nil, apperrors.New(apperrors.CodeTimeout, op,
		fmt.Sprintf("face search %s not ready after %d poll attempts", idSearch, c.maxPollAttempts))
}

func (c *Client) upload(ctx context.Context, image []byte) (string, error) {
	const op = "facecheck.upload"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("images", "upload.jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.base.NewRequest(ctx, http.MethodPost, "/api/upload_pic", nil, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out uploadResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "image upload failed", err)
	}
	if out.Error != "" {
		return "", apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("%s (%s)", out.Error, out.Code.String()))
	}
	if out.IDSearch == "" {
		return "", apperrors.New(apperrors.CodeUpstream, op, "upload response carried no id_search")
	}

	logger.InfoWithFields("facecheck image submitted", logger.Fields{
		"id_search": out.IDSearch,
		"state":     string(StateSubmitted),
		"message":   out.Message,
	})
	return out.IDSearch, nil
}

func (c *Client) poll(ctx context.Context, idSearch string) (*pollResponse, error) {
	const op = "facecheck.poll"

	payload, err := json.Marshal(map[string]any{
		"id_search":     idSearch,
		"with_progress": true,
		"status_only":   false,
		"demo":          c.testingMode,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.base.NewRequest(ctx, http.MethodPost, "/api/search", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	var out pollResponse
	if err := c.doJSON(req, &out); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, op, "status poll failed", err)
	}
	if out.Error != "" {
		return nil, apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("%s (%s)", out.Error, out.Code.String()))
	}
	return &out, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	const maxBodySize = 5 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("facecheck returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// FormatTop3 sorts matches by similarity score descending, keeps at most
// TopMatches of them, and synthesizes the title and snippet shown to API
// consumers. Pure; no network effects.
func FormatTop3(matches []models.FaceMatch) []models.SearchResult {
	sorted := make([]models.FaceMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if len(sorted) > TopMatches {
		sorted = sorted[:TopMatches]
	}

	results := make([]models.SearchResult, 0, len(sorted))
	for _, m := range sorted {
		results = append(results, models.SearchResult{
			Title:   fmt.Sprintf("Face Match (Score: %d%%)", m.Score),
			Link:    m.URL,
			Snippet: fmt.Sprintf("Face similarity score: %d%% - Found on webpage", m.Score),
		})
	}
	return results
}
