package dto

import "bouncer/models"

// TextSearchRequestDTO is the JSON body of POST /api/v1/text-search.
type TextSearchRequestDTO struct {
	Text       string `json:"text" binding:"required"`
	NumResults int    `json:"num_results"`
}

// SearchResultsResponseDTO wraps a flat list of search hits.
type SearchResultsResponseDTO struct {
	Results []models.SearchResult `json:"results"`
}

// AnalyzeRequestDTO is the JSON body of POST /api/v1/analyze: the caller's
// risk-weighting prompt plus a previously returned evidence bundle.
type AnalyzeRequestDTO struct {
	Prompt   string                `json:"prompt"`
	Evidence models.EvidenceBundle `json:"evidence"`
}

// ErrorResponseDTO is the uniform error payload of every endpoint.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"no results found from either search method"`
}

// MessageResponseDTO is the uniform payload of plain message responses.
type MessageResponseDTO struct {
	Message string `json:"message" example:"Welcome to the Bouncer API"`
}
