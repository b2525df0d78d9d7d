package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/domain"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/metrics"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

// chartDays is the width of the daily histogram, today included
const chartDays = 7

type VisitService struct {
	repo ports.VisitRepository
	loc  *time.Location
	now  func() time.Time
}

// Option tweaks a VisitService at construction.
type Option func(*VisitService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *VisitService) { s.now = now }
}

// WithLocation sets the timezone that defines a calendar day. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *VisitService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewVisitService(repo ports.VisitRepository, opts ...Option) *VisitService {
	s := &VisitService{
		repo: repo,
		loc:  time.UTC,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *VisitService) RecordVisit(ctx context.Context, ip, userAgent string) (*domain.VisitResult, error) {
	now := s.now().In(s.loc)

	visit := &domain.Visit{
		IPAddress: ip,
		VisitDate: now.Format(domain.DateLayout),
		VisitedAt: now,
		UserAgent: userAgent,
	}

	receipt, err := s.repo.RecordVisit(ctx, visit)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("record_visit").Inc()
		return nil, fmt.Errorf("%w: record visit: %w", domain.ErrPersistence, err)
	}

	// A new visitor is the Nth, N being the total right after the insert.
	// A returning visitor keeps the rank assigned when the record was created.
	rank := receipt.Visit.VisitorNumber
	if receipt.Inserted {
		rank = receipt.TotalCount
		metrics.VisitsRecorded.WithLabelValues("new").Inc()
	} else {
		metrics.VisitsRecorded.WithLabelValues("repeat").Inc()
	}

	return &domain.VisitResult{
		VisitorNumber: rank,
		TotalCount:    receipt.TotalCount,
		IsNewVisit:    receipt.Inserted,
	}, nil
}

func (s *VisitService) GetStats(ctx context.Context) (*domain.VisitStats, error) {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	start := today.AddDate(0, 0, -(chartDays - 1))

	days := make([]time.Time, chartDays)
	buckets := make(map[string]int64, chartDays)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
		buckets[days[i].Format(domain.DateLayout)] = 0
	}

	visitedAt, err := s.repo.ListVisitedSince(ctx, start)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list_visited_since").Inc()
		return nil, fmt.Errorf("%w: list visits: %w", domain.ErrPersistence, err)
	}

	// Read after the window: the chart sum must not exceed the total.
	total, err := s.repo.Count(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("count").Inc()
		return nil, fmt.Errorf("%w: count visits: %w", domain.ErrPersistence, err)
	}

	for _, t := range visitedAt {
		key := t.In(s.loc).Format(domain.DateLayout)
		// Outside the window (clock skew): still part of the total, not the chart
		if _, ok := buckets[key]; ok {
			buckets[key]++
		}
	}

	chart := make([]domain.DailyVisits, 0, chartDays)
	for _, d := range days {
		chart = append(chart, domain.DailyVisits{
			Date:   FormatChartDate(d),
			Visits: buckets[d.Format(domain.DateLayout)],
		})
	}

	return &domain.VisitStats{
		TotalCount: total,
		ChartData:  chart,
	}, nil
}

func (s *VisitService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// FormatChartDate renders a day the way the ja-JP locale does with
// month "short" and day "numeric", e.g. 10月18日.
func FormatChartDate(t time.Time) string {
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

// Ensure interface compliance
var _ ports.VisitService = (*VisitService)(nil)
