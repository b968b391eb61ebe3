package main

import (
	"log"
	"net/http"

	"github.com/rs/cors"

	"bouncer/api/router"
	"bouncer/config"
	"bouncer/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger.Init(cfg.Logging.Level)

	r := router.New(cfg)
	handler := cors.Default().Handler(r)

	logger.Log.Infof("bouncer listening on %s", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, handler); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
