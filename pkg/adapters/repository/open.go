// Package repository picks a visit store from the DATABASE_URL scheme.
package repository

import (
	"context"
	"strings"

	"github.com/wadjakorntonsri/go-visit-counter/pkg/adapters/repository/redis"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

// Open returns a Redis store for redis:// and rediss:// URLs and a SQL store
// (local SQLite or Turso) for everything else.
func Open(ctx context.Context, dbURL string) (ports.VisitRepository, error) {
	if strings.HasPrefix(dbURL, "redis://") || strings.HasPrefix(dbURL, "rediss://") {
		return redis.NewRepository(ctx, dbURL)
	}
	return sqlite.NewSQLiteRepository(dbURL)
}
