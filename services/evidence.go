package services

import "bouncer/models"

// AssembleEvidence wraps the summarized records into an evidence bundle
// with per-source counts. Pure aggregation; no I/O.
func AssembleEvidence(summaries []models.SummaryRecord) models.EvidenceBundle {
	bundle := models.EvidenceBundle{
		TotalResults: len(summaries),
		Summaries:    summaries,
	}
	for _, s := range summaries {
		switch s.Source {
		case models.SourceFace:
			bundle.FaceSearchCount++
		case models.SourceText:
			bundle.TextSearchCount++
		}
	}
	return bundle
}
