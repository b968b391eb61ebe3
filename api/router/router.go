package router

import (
	"github.com/gin-gonic/gin"

	"bouncer/api/handlers"
	"bouncer/api/middleware"
	"bouncer/config"
	"bouncer/facecheck"
	"bouncer/parser"
	"bouncer/scorer"
	"bouncer/search"
	"bouncer/services"
	"bouncer/summarizer"
)

// New wires the evidence pipeline and returns the configured engine.
func New(cfg *config.AppConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestTrace())

	r.GET("/", handlers.HomeHandler())
	r.GET("/health", handlers.HealthHandler())

	textClient := search.NewClient(cfg.TextSearch, cfg.Credentials)
	faceClient := facecheck.NewClient(cfg.FaceSearch, cfg.Credentials)
	aggregator := search.NewAggregator(textClient, faceClient)
	fetcher := parser.NewFetcher(cfg.Summarizer)
	gemini := summarizer.NewGemini(cfg.Summarizer, cfg.Credentials)
	deepSearch := services.NewDeepSearchService(cfg.Summarizer, aggregator, fetcher, gemini)
	trustScorer := scorer.NewScorer(cfg.Scorer, cfg.Credentials)

	api := r.Group("/api/v1")
	{
		api.POST("/text-search", handlers.TextSearchHandler(textClient))
		api.POST("/face-search", handlers.FaceSearchHandler(faceClient))
		api.POST("/deep-search", handlers.DeepSearchHandler(deepSearch))
		api.POST("/analyze", handlers.AnalyzeTrustHandler(trustScorer))
	}

	return r
}
