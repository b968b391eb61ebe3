package models

// Source tags where a search hit came from.
type Source string

const (
	SourceFace Source = "face_search"
	SourceText Source = "text_search"
)

// SearchResult is one normalized hit from either lookup source.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  Source `json:"source"`
}

// FaceMatch is one raw face-similarity hit. Score is the provider's
// similarity percentage, 0-100.
type FaceMatch struct {
	URL   string `json:"url"`
	Score int    `json:"score"`
}

// SummaryRecord is a search hit plus its page summary. Summary is never
// empty: on failure it carries a descriptive placeholder instead.
type SummaryRecord struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  Source `json:"source"`
	Summary string `json:"summary"`
}

// EvidenceBundle is the assembled, deduplicated, per-item-summarized output
// of one deep search. TotalResults always equals len(Summaries) and the two
// per-source counts always sum to it.
type EvidenceBundle struct {
	TotalResults    int             `json:"total_results"`
	FaceSearchCount int             `json:"face_search_count"`
	TextSearchCount int             `json:"text_search_count"`
	Summaries       []SummaryRecord `json:"summaries"`
}

// ScoreResult is the parsed trust assessment: an integer 0-100 where 0 is
// most trustworthy, plus the model's explanation.
type ScoreResult struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}
