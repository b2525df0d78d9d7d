package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/domain"
)

// VisitRepository defines storage operations for visit records
type VisitRepository interface {
	// RecordVisit inserts the visit unless one already exists for the same
	// (IPAddress, VisitDate) pair. The check and the insert are atomic.
	RecordVisit(ctx context.Context, visit *domain.Visit) (*domain.VisitReceipt, error)
	Count(ctx context.Context) (int64, error)
	ListVisitedSince(ctx context.Context, since time.Time) ([]time.Time, error) // ascending
	Ping(ctx context.Context) error

	// For migration
	Dump(ctx context.Context) ([]domain.Visit, error)
	Import(ctx context.Context, visit *domain.Visit) (bool, error)
	Close() error
}

// VisitService defines the business logic operations
type VisitService interface {
	RecordVisit(ctx context.Context, ip, userAgent string) (*domain.VisitResult, error)
	GetStats(ctx context.Context) (*domain.VisitStats, error)
	Health(ctx context.Context) error
}
