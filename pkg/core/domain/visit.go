package domain

import (
	"errors"
	"time"
)

// ErrPersistence tags every failure coming from the visit store.
var ErrPersistence = errors.New("persistence operation failed")

// DateLayout is the day bucket format used for deduplication
const DateLayout = "2006-01-02"

// Visit represents one deduplicated IP-and-day visit
type Visit struct {
	ID            int64     `json:"id"`
	IPAddress     string    `json:"ip_address"`
	VisitDate     string    `json:"visit_date"` // YYYY-MM-DD
	VisitedAt     time.Time `json:"visited_at"`
	UserAgent     string    `json:"user_agent,omitempty"`
	VisitorNumber int64     `json:"visitor_number"` // rank assigned at creation
}

// VisitReceipt is what the store reports back after an insert-if-absent
type VisitReceipt struct {
	Visit      Visit
	Inserted   bool
	TotalCount int64
}

// VisitResult is returned to the caller of POST /visit
type VisitResult struct {
	VisitorNumber int64 `json:"visitorNumber"`
	TotalCount    int64 `json:"totalCount"`
	IsNewVisit    bool  `json:"isNewVisit"`
}

// VisitStats is the 7-day overview returned by GET /visit
type VisitStats struct {
	TotalCount int64         `json:"totalCount"`
	ChartData  []DailyVisits `json:"chartData"`
}

type DailyVisits struct {
	Date   string `json:"date"` // short ja-JP date, e.g. 10月18日
	Visits int64  `json:"visits"`
}
