package search

import (
	"context"

	"bouncer/facecheck"
	"bouncer/logger"
	"bouncer/models"
)

// TextSearcher is the keyword-search side of an aggregate lookup.
type TextSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// FaceSearcher is the face-similarity side of an aggregate lookup.
type FaceSearcher interface {
	Search(ctx context.Context, image []byte) ([]models.FaceMatch, error)
}

// Aggregator fans a lookup out to the face and text sources, tags each hit
// with its origin, and deduplicates by link. A failure in one source is
// logged and swallowed so the other source's hits still come through.
type Aggregator struct {
	text TextSearcher
	face FaceSearcher
}

func NewAggregator(text TextSearcher, face FaceSearcher) *Aggregator {
	return &Aggregator{text: text, face: face}
}

// Aggregate runs whichever lookups have inputs. Face results come first,
// then text results; within each source the provider order is kept. An
// empty return means no evidence was found (or both sources failed).
func (a *Aggregator) Aggregate(ctx context.Context, image []byte, textQuery string, textLimit int) []models.SearchResult {
	var all []models.SearchResult

	if len(image) > 0 && a.face != nil {
		matches, err := a.face.Search(ctx, image)
		if err != nil {
			logger.Log.Warnf("face search failed: %v", err)
		} else {
			formatted := facecheck.FormatTop3(matches)
			for i := range formatted {
				formatted[i].Source = models.SourceFace
			}
			all = append(all, formatted...)
			logger.Log.Infof("face search found %d results", len(formatted))
		}
	}

	if textQuery != "" && a.text != nil {
		results, err := a.text.Search(ctx, textQuery, textLimit)
		if err != nil {
			logger.Log.Warnf("text search failed: %v", err)
		} else {
			for i := range results {
				results[i].Source = models.SourceText
			}
			all = append(all, results...)
			logger.Log.Infof("text search found %d results", len(results))
		}
	}

	return dedupeByLink(all)
}

// dedupeByLink keeps the first occurrence of every link.
func dedupeByLink(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	unique := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		unique = append(unique, r)
	}
	return unique
}
