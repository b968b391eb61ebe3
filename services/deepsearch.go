package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bouncer/config"
	"bouncer/logger"
	"bouncer/models"
	"bouncer/parser"
	"bouncer/search"
	"bouncer/summarizer"
)

// ErrNoResults is returned when neither source produced any evidence.
// Callers surface it as a not-found condition, not an empty bundle.
var ErrNoResults = errors.New("no results found from either search method")

// DeepSearchService runs the full evidence pipeline: aggregate the two
// lookup sources, summarize every unique page, and assemble the bundle.
type DeepSearchService struct {
	agg        *search.Aggregator
	fetcher    *parser.Fetcher
	summarizer summarizer.Summarizer
	workers    int
	maxLines   int
}

func NewDeepSearchService(cfg config.SummarizerConfig, agg *search.Aggregator, fetcher *parser.Fetcher, sum summarizer.Summarizer) *DeepSearchService {
	return &DeepSearchService{
		agg:        agg,
		fetcher:    fetcher,
		summarizer: sum,
		workers:    cfg.Workers,
		maxLines:   cfg.MaxExcerptLines,
	}
}

// DeepSearch aggregates, summarizes, and assembles the evidence bundle for
// one request. Returns ErrNoResults when both sources came back empty.
func (s *DeepSearchService) DeepSearch(ctx context.Context, image []byte, textQuery string, textLimit int) (*models.EvidenceBundle, error) {
	results := s.agg.Aggregate(ctx, image, textQuery, textLimit)
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	logger.Log.Infof("processing %d unique links for deep search", len(results))
	summaries := s.SummarizeAll(ctx, results)
	bundle := AssembleEvidence(summaries)
	return &bundle, nil
}

// SummarizeAll summarizes every result with a bounded worker pool. Each
// item is isolated: a failure becomes a placeholder summary, never an
// aborted batch. Output order mirrors the input order; workers write into
// a pre-sized slot per item so there is no ordering race.
func (s *DeepSearchService) SummarizeAll(ctx context.Context, results []models.SearchResult) []models.SummaryRecord {
	records := make([]models.SummaryRecord, len(results))

	workers := s.workers
	if workers > len(results) {
		workers = len(results)
	}
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				records[i] = s.summarizeOne(ctx, results[i])
			}
		}()
	}

	for i := range results {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return records
}

func (s *DeepSearchService) summarizeOne(ctx context.Context, result models.SearchResult) models.SummaryRecord {
	record := models.SummaryRecord{
		Title:   result.Title,
		Link:    result.Link,
		Snippet: result.Snippet,
		Source:  result.Source,
	}

	summary, err := s.summarizePage(ctx, result.Link)
	if err != nil {
		logger.Log.Warnf("failed to process %s: %v", result.Link, err)
		record.Summary = fmt.Sprintf("Failed to retrieve summary: %v", err)
		return record
	}

	record.Summary = summary
	return record
}

func (s *DeepSearchService) summarizePage(ctx context.Context, link string) (string, error) {
	htmlStr, err := s.fetcher.FetchHTML(ctx, link)
	if err != nil {
		return "", err
	}

	text := parser.ExtractReadableText(htmlStr)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no readable content")
	}
	excerpt := parser.FirstLines(text, s.maxLines)

	summary, err := s.summarizer.Summarize(ctx, excerpt)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "No summary generated", nil
	}
	return summary, nil
}
