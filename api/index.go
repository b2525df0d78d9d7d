package handler

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/config"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/services"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	if err := logger.Init(logger.Options{Level: cfg.LogLevel, Production: true}); err != nil {
		panic(err)
	}

	loc, err := cfg.Location()
	if err != nil {
		panic(err)
	}

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	repo, err := repository.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("failed to open store")
		panic(err)
	}

	service := services.NewVisitService(repo, services.WithLocation(loc))
	mux = handler.NewRouter(cfg, service)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
