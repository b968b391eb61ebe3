package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bouncer/apperrors"
	"bouncer/dto"
	"bouncer/facecheck"
	"bouncer/models"
	"bouncer/search"
	"bouncer/services"
)

// MaxImageBytes caps uploaded photo size.
const MaxImageBytes = 10 * 1024 * 1024

var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// TextSearcher and FaceSearcher mirror the aggregator-side interfaces so
// handlers can be exercised with fakes.
type TextSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

type FaceSearcher interface {
	Search(ctx context.Context, image []byte) ([]models.FaceMatch, error)
}

type DeepSearcher interface {
	DeepSearch(ctx context.Context, image []byte, textQuery string, textLimit int) (*models.EvidenceBundle, error)
}

type TrustScorer interface {
	Score(ctx context.Context, prompt string, bundle *models.EvidenceBundle) (*models.ScoreResult, error)
}

// HomeHandler godoc
// @Summary      Welcome message
// @Produce      json
// @Success      200  {object}  dto.MessageResponseDTO
// @Router       / [get]
func HomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "Welcome to the Bouncer API"})
	}
}

// HealthHandler godoc
// @Summary      Health check
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// TextSearchHandler godoc
// @Summary      Keyword search for a name or email
// @Description  Search the web for pages mentioning the given text
// @Accept       json
// @Produce      json
// @Param        request  body  dto.TextSearchRequestDTO  true  "Search request"
// @Success      200  {object}  dto.SearchResultsResponseDTO
// @Router       /text-search [post]
func TextSearchHandler(searcher TextSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.TextSearchRequestDTO
		if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Text) == "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "request JSON must include 'text'"})
			return
		}

		limit := clampTextLimit(in.NumResults)
		results, err := searcher.Search(c.Request.Context(), in.Text, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		for i := range results {
			results[i].Source = models.SourceText
		}
		c.JSON(http.StatusOK, dto.SearchResultsResponseDTO{Results: results})
	}
}

// FaceSearchHandler godoc
// @Summary      Face-similarity search
// @Description  Search the web for the top 3 faces most similar to the uploaded photo
// @Accept       multipart/form-data
// @Produce      json
// @Param        image  formData  file  true  "Face photo (png, jpg, jpeg, gif, bmp, webp)"
// @Success      200  {object}  dto.SearchResultsResponseDTO
// @Router       /face-search [post]
func FaceSearchHandler(searcher FaceSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "request must include an image file with key 'image'"})
			return
		}

		image, errMsg := readImageFile(file)
		if errMsg != "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: errMsg})
			return
		}

		matches, err := searcher.Search(c.Request.Context(), image)
		if err != nil {
			respondError(c, err)
			return
		}

		results := facecheck.FormatTop3(matches)
		for i := range results {
			results[i].Source = models.SourceFace
		}
		c.JSON(http.StatusOK, dto.SearchResultsResponseDTO{Results: results})
	}
}

// DeepSearchHandler godoc
// @Summary      Combined face + text evidence search
// @Description  Run face and/or text search, summarize every unique result page, and return the evidence bundle
// @Accept       multipart/form-data
// @Produce      json
// @Param        text              formData  string  false  "Name or email to search for"
// @Param        image             formData  file    false  "Face photo"
// @Param        num_text_results  formData  int     false  "Text result count (capped at 10)"
// @Success      200  {object}  models.EvidenceBundle
// @Router       /deep-search [post]
func DeepSearchHandler(svc DeepSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		textQuery := strings.TrimSpace(c.PostForm("text"))

		var image []byte
		if file, err := c.FormFile("image"); err == nil && file.Filename != "" {
			var errMsg string
			image, errMsg = readImageFile(file)
			if errMsg != "" {
				c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: errMsg})
				return
			}
		}

		if textQuery == "" && len(image) == 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "must provide either 'text' query or 'image' file (or both)"})
			return
		}

		numResults, _ := strconv.Atoi(c.DefaultPostForm("num_text_results", "10"))
		limit := clampTextLimit(numResults)

		bundle, err := svc.DeepSearch(c.Request.Context(), image, textQuery, limit)
		if err != nil {
			if errors.Is(err, services.ErrNoResults) {
				c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: services.ErrNoResults.Error()})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bundle)
	}
}

// AnalyzeTrustHandler godoc
// @Summary      Trust assessment of an evidence bundle
// @Description  Score the bundle with the scoring model under the caller's risk-weighting prompt
// @Accept       json
// @Produce      json
// @Param        request  body  dto.AnalyzeRequestDTO  true  "Analysis request"
// @Success      200  {object}  models.ScoreResult
// @Router       /analyze [post]
func AnalyzeTrustHandler(scorer TrustScorer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in dto.AnalyzeRequestDTO
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "request must include JSON body"})
			return
		}
		if strings.TrimSpace(in.Prompt) == "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "request JSON must include 'prompt'"})
			return
		}
		if len(in.Evidence.Summaries) == 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "'evidence' must be a deep search result with summaries"})
			return
		}

		result, err := scorer.Score(c.Request.Context(), in.Prompt, &in.Evidence)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// clampTextLimit resolves requested text-result counts against the
// provider's hard cap so the API never promises more than it can deliver.
func clampTextLimit(requested int) int {
	if requested <= 0 || requested > search.ProviderMaxResults {
		return search.ProviderMaxResults
	}
	return requested
}

func readImageFile(file *multipart.FileHeader) ([]byte, string) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExtensions[ext] {
		return nil, "invalid image file type. Supported formats: png, jpg, jpeg, gif, bmp, webp"
	}
	if file.Size > MaxImageBytes {
		return nil, "image file exceeds the 10MB limit"
	}

	f, err := file.Open()
	if err != nil {
		return nil, "failed to read image file"
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil || len(image) == 0 {
		return nil, "failed to read image file"
	}
	if len(image) > MaxImageBytes {
		return nil, "image file exceeds the 10MB limit"
	}
	return image, ""
}

// respondError maps the error taxonomy onto transport status codes and a
// stable error payload.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeConfiguration:
		status = http.StatusInternalServerError
	case apperrors.CodeUpstream, apperrors.CodeProtocol:
		status = http.StatusBadGateway
	case apperrors.CodeTimeout:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, dto.ErrorResponseDTO{Error: err.Error()})
}
