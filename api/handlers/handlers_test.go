package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bouncer/api/handlers"
	"bouncer/apperrors"
	"bouncer/dto"
	"bouncer/models"
	"bouncer/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTextSearcher struct {
	results  []models.SearchResult
	err      error
	gotQuery string
	gotLimit int
}

func (s *stubTextSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	s.gotQuery = query
	s.gotLimit = limit
	return s.results, s.err
}

type stubFaceSearcher struct {
	matches  []models.FaceMatch
	err      error
	gotImage []byte
}

func (s *stubFaceSearcher) Search(ctx context.Context, image []byte) ([]models.FaceMatch, error) {
	s.gotImage = image
	return s.matches, s.err
}

type stubDeepSearcher struct {
	bundle   *models.EvidenceBundle
	err      error
	gotText  string
	gotLimit int
	gotImage []byte
}

func (s *stubDeepSearcher) DeepSearch(ctx context.Context, image []byte, textQuery string, textLimit int) (*models.EvidenceBundle, error) {
	s.gotImage = image
	s.gotText = textQuery
	s.gotLimit = textLimit
	return s.bundle, s.err
}

type stubScorer struct {
	result    *models.ScoreResult
	err       error
	gotPrompt string
}

func (s *stubScorer) Score(ctx context.Context, prompt string, bundle *models.EvidenceBundle) (*models.ScoreResult, error) {
	s.gotPrompt = prompt
	return s.result, s.err
}

func doJSON(t *testing.T, handler gin.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Handle(method, target, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doMultipart(t *testing.T, handler gin.HandlerFunc, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST(target, handler)

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHomeAndHealth(t *testing.T) {
	rec := doJSON(t, handlers.HomeHandler(), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the Bouncer API")

	rec = doJSON(t, handlers.HealthHandler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestTextSearchHandlerRequiresText(t *testing.T) {
	searcher := &stubTextSearcher{}
	for _, body := range []string{``, `{}`, `{"text":"  "}`, `not json`} {
		rec := doJSON(t, handlers.TextSearchHandler(searcher), http.MethodPost, "/text-search", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "'text'")
	}
}

func TestTextSearchHandlerTagsAndClamps(t *testing.T) {
	searcher := &stubTextSearcher{results: []models.SearchResult{
		{Title: "Hit", Link: "https://a.example", Snippet: "s"},
	}}

	rec := doJSON(t, handlers.TextSearchHandler(searcher), http.MethodPost, "/text-search",
		`{"text":"alice@example.com","num_results":25}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "alice@example.com", searcher.gotQuery)
	assert.Equal(t, 10, searcher.gotLimit)

	var out dto.SearchResultsResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, models.SourceText, out.Results[0].Source)
}

func TestTextSearchHandlerUpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"upstream", apperrors.New(apperrors.CodeUpstream, "search.Search", "provider down"), http.StatusBadGateway},
		{"timeout", apperrors.New(apperrors.CodeTimeout, "search.Search", "provider slow"), http.StatusGatewayTimeout},
		{"configuration", apperrors.New(apperrors.CodeConfiguration, "search.Search", "missing key"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &stubTextSearcher{err: tt.err}
			rec := doJSON(t, handlers.TextSearchHandler(searcher), http.MethodPost, "/text-search", `{"text":"alice"}`)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestFaceSearchHandlerValidatesUpload(t *testing.T) {
	searcher := &stubFaceSearcher{}

	// no file at all
	body, contentType := multipartBody(t, nil, "", "", nil)
	rec := doMultipart(t, handlers.FaceSearchHandler(searcher), "/face-search", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'image'")

	// wrong extension
	body, contentType = multipartBody(t, nil, "image", "resume.pdf", []byte("%PDF-1.4"))
	rec = doMultipart(t, handlers.FaceSearchHandler(searcher), "/face-search", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid image file type")
}

func TestFaceSearchHandlerFormatsTopMatches(t *testing.T) {
	searcher := &stubFaceSearcher{matches: []models.FaceMatch{
		{URL: "https://a.example", Score: 70},
		{URL: "https://b.example", Score: 95},
	}}

	body, contentType := multipartBody(t, nil, "image", "face.jpg", []byte("jpegdata"))
	rec := doMultipart(t, handlers.FaceSearchHandler(searcher), "/face-search", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []byte("jpegdata"), searcher.gotImage)

	var out dto.SearchResultsResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, "Face Match (Score: 95%)", out.Results[0].Title)
	assert.Equal(t, "https://b.example", out.Results[0].Link)
	assert.Equal(t, models.SourceFace, out.Results[0].Source)
}

func TestDeepSearchHandlerRequiresAnyInput(t *testing.T) {
	svc := &stubDeepSearcher{}
	body, contentType := multipartBody(t, map[string]string{"text": "   "}, "", "", nil)
	rec := doMultipart(t, handlers.DeepSearchHandler(svc), "/deep-search", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'text' query or 'image' file")
}

func TestDeepSearchHandlerPassesInputsThrough(t *testing.T) {
	svc := &stubDeepSearcher{bundle: &models.EvidenceBundle{
		TotalResults:    1,
		TextSearchCount: 1,
		Summaries:       []models.SummaryRecord{{Link: "https://a.example", Summary: "ok", Source: models.SourceText}},
	}}

	body, contentType := multipartBody(t,
		map[string]string{"text": "alice", "num_text_results": "50"},
		"image", "face.png", []byte("pngdata"))
	rec := doMultipart(t, handlers.DeepSearchHandler(svc), "/deep-search", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "alice", svc.gotText)
	assert.Equal(t, 10, svc.gotLimit)
	assert.Equal(t, []byte("pngdata"), svc.gotImage)

	var out models.EvidenceBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.TotalResults)
}

func TestDeepSearchHandlerNoResultsIs404(t *testing.T) {
	svc := &stubDeepSearcher{err: services.ErrNoResults}
	body, contentType := multipartBody(t, map[string]string{"text": "nobody"}, "", "", nil)
	rec := doMultipart(t, handlers.DeepSearchHandler(svc), "/deep-search", body, contentType)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no results found")
}

func TestAnalyzeTrustHandlerValidation(t *testing.T) {
	scorer := &stubScorer{}
	h := handlers.AnalyzeTrustHandler(scorer)

	rec := doJSON(t, h, http.MethodPost, "/analyze", ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/analyze", `{"evidence":{"summaries":[{"link":"x","summary":"y"}]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'prompt'")

	rec = doJSON(t, h, http.MethodPost, "/analyze", `{"prompt":"weigh records","evidence":{"summaries":[]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "summaries")
}

func TestAnalyzeTrustHandlerReturnsVerdict(t *testing.T) {
	scorer := &stubScorer{result: &models.ScoreResult{Score: 25, Explanation: "Mostly clean record."}}

	rec := doJSON(t, handlers.AnalyzeTrustHandler(scorer), http.MethodPost, "/analyze",
		`{"prompt":"weigh criminal records heavily","evidence":{"total_results":1,"summaries":[{"link":"https://a.example","summary":"ok"}]}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "weigh criminal records heavily", scorer.gotPrompt)
	var out models.ScoreResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 25, out.Score)
	assert.Equal(t, "Mostly clean record.", out.Explanation)
}

func TestAnalyzeTrustHandlerProtocolErrorIs502(t *testing.T) {
	scorer := &stubScorer{err: apperrors.New(apperrors.CodeProtocol, "scorer.ParseVerdict", "malformed reply")}

	rec := doJSON(t, handlers.AnalyzeTrustHandler(scorer), http.MethodPost, "/analyze",
		`{"prompt":"p","evidence":{"summaries":[{"link":"https://a.example","summary":"ok"}]}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
