package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bouncer/config"
	"bouncer/models"
	"bouncer/parser"
	"bouncer/search"
	"bouncer/services"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, excerpt string) (string, error) {
	return f.summary, f.err
}

type stubTextSearcher struct {
	results []models.SearchResult
	err     error
}

func (s *stubTextSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	return s.results, s.err
}

func summarizerConfig() config.SummarizerConfig {
	return config.SummarizerConfig{
		FetchTimeoutSeconds: 5,
		FetchMode:           "http",
		MaxExcerptLines:     500,
		Workers:             4,
	}
}

func newService(sum *fakeSummarizer, text search.TextSearcher) *services.DeepSearchService {
	cfg := summarizerConfig()
	agg := search.NewAggregator(text, nil)
	return services.NewDeepSearchService(cfg, agg, parser.NewFetcher(cfg), sum)
}

// pageServer serves a readable page on every path except /broken (500) and
// /empty (script-only, no readable content).
func pageServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/empty":
			w.Write([]byte(`<html><head><script>var x = 1;</script></head><body></body></html>`))
		default:
			w.Write([]byte(`<html><body><p>Readable page content about this person.</p></body></html>`))
		}
	}))
}

func TestSummarizeAllIsolatesPerItemFailures(t *testing.T) {
	srv := pageServer()
	defer srv.Close()

	svc := newService(&fakeSummarizer{summary: "A short summary."}, nil)
	results := []models.SearchResult{
		{Title: "ok 1", Link: srv.URL + "/a", Source: models.SourceText},
		{Title: "broken", Link: srv.URL + "/broken", Source: models.SourceText},
		{Title: "ok 2", Link: srv.URL + "/b", Source: models.SourceText},
	}

	records := svc.SummarizeAll(context.Background(), results)
	require.Len(t, records, 3)

	// order mirrors input order even with concurrent workers
	assert.Equal(t, srv.URL+"/a", records[0].Link)
	assert.Equal(t, srv.URL+"/broken", records[1].Link)
	assert.Equal(t, srv.URL+"/b", records[2].Link)

	assert.Equal(t, "A short summary.", records[0].Summary)
	assert.True(t, strings.HasPrefix(records[1].Summary, "Failed to retrieve summary:"), records[1].Summary)
	assert.Equal(t, "A short summary.", records[2].Summary)

	// summary is never empty, and metadata travels with the record
	for i, rec := range records {
		assert.NotEmpty(t, rec.Summary)
		assert.Equal(t, results[i].Title, rec.Title)
		assert.Equal(t, results[i].Source, rec.Source)
	}
}

func TestSummarizeAllNoReadableContent(t *testing.T) {
	srv := pageServer()
	defer srv.Close()

	svc := newService(&fakeSummarizer{summary: "unused"}, nil)
	records := svc.SummarizeAll(context.Background(), []models.SearchResult{
		{Link: srv.URL + "/empty", Source: models.SourceText},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "Failed to retrieve summary: no readable content", records[0].Summary)
}

func TestSummarizeAllEmptyModelReply(t *testing.T) {
	srv := pageServer()
	defer srv.Close()

	svc := newService(&fakeSummarizer{summary: ""}, nil)
	records := svc.SummarizeAll(context.Background(), []models.SearchResult{
		{Link: srv.URL + "/a", Source: models.SourceText},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "No summary generated", records[0].Summary)
}

func TestDeepSearchNoResults(t *testing.T) {
	svc := newService(&fakeSummarizer{}, &stubTextSearcher{})

	_, err := svc.DeepSearch(context.Background(), nil, "", 10)
	require.ErrorIs(t, err, services.ErrNoResults)
}

func TestDeepSearchTextOnlyScenario(t *testing.T) {
	srv := pageServer()
	defer srv.Close()

	text := &stubTextSearcher{results: []models.SearchResult{
		{Title: "Hit 1", Link: srv.URL + "/1", Snippet: "s1"},
		{Title: "Hit 2", Link: srv.URL + "/2", Snippet: "s2"},
		{Title: "Hit 3", Link: srv.URL + "/3", Snippet: "s3"},
	}}
	svc := newService(&fakeSummarizer{summary: "A short summary."}, text)

	bundle, err := svc.DeepSearch(context.Background(), nil, "alice", 10)
	require.NoError(t, err)

	assert.Equal(t, 3, bundle.TotalResults)
	assert.Equal(t, 3, bundle.TextSearchCount)
	assert.Equal(t, 0, bundle.FaceSearchCount)
	require.Len(t, bundle.Summaries, 3)
	assert.Equal(t, srv.URL+"/1", bundle.Summaries[0].Link)
}

func TestAssembleEvidenceCountInvariant(t *testing.T) {
	summaries := []models.SummaryRecord{
		{Link: "https://a.example", Source: models.SourceFace, Summary: "x"},
		{Link: "https://b.example", Source: models.SourceText, Summary: "y"},
		{Link: "https://c.example", Source: models.SourceText, Summary: "z"},
	}

	bundle := services.AssembleEvidence(summaries)
	assert.Equal(t, 3, bundle.TotalResults)
	assert.Equal(t, len(bundle.Summaries), bundle.TotalResults)
	assert.Equal(t, bundle.TotalResults, bundle.FaceSearchCount+bundle.TextSearchCount)
	assert.Equal(t, 1, bundle.FaceSearchCount)
	assert.Equal(t, 2, bundle.TextSearchCount)
}
