package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/domain"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

// timeLayout is fixed width and always UTC so that text comparison in SQL
// orders the same way as time.
const timeLayout = "2006-01-02T15:04:05.000Z"

// insertOrdinal adds a row unless (ip_address, visit_date) exists. The row's
// visitor_number is its position in the table, which rows are only appended
// to. "WHERE true" keeps the parser from reading ON CONFLICT as a join clause.
const insertOrdinal = `
	INSERT INTO visits (ip_address, visit_date, visited_at, user_agent, visitor_number)
	SELECT ?, ?, ?, ?, COUNT(*) + 1 FROM visits WHERE true
	ON CONFLICT (ip_address, visit_date) DO NOTHING`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// One writer at a time; transactions then queue in the pool instead
		// of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ip_address TEXT NOT NULL,
		visit_date TEXT NOT NULL,
		visited_at TEXT NOT NULL,
		user_agent TEXT,
		visitor_number INTEGER NOT NULL,
		UNIQUE (ip_address, visit_date)
	);
	CREATE INDEX IF NOT EXISTS idx_visits_visited_at ON visits(visited_at);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) RecordVisit(ctx context.Context, visit *domain.Visit) (*domain.VisitReceipt, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Insert-if-absent and rank assignment in a single statement.
	res, err := tx.ExecContext(ctx, insertOrdinal,
		visit.IPAddress, visit.VisitDate, formatTime(visit.VisitedAt), nullString(visit.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("insert visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	canonical, err := scanVisit(tx.QueryRowContext(ctx, `
		SELECT id, ip_address, visit_date, visited_at, user_agent, visitor_number
		FROM visits WHERE ip_address = ? AND visit_date = ?
		ORDER BY id ASC LIMIT 1`, visit.IPAddress, visit.VisitDate))
	if err != nil {
		return nil, fmt.Errorf("load visit: %w", err)
	}

	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.VisitReceipt{
		Visit:      *canonical,
		Inserted:   affected > 0,
		TotalCount: total,
	}, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) ListVisitedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT visited_at FROM visits WHERE visited_at >= ? ORDER BY visited_at ASC`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ip_address, visit_date, visited_at, user_agent, visitor_number
		FROM visits ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

// Import stores a visit exported elsewhere, keeping its timestamp. It is
// numbered by its position in this store, so replaying an export in order
// into an empty store reproduces the original numbers. It reports false when
// the (ip, date) pair is already taken.
func (r *SQLiteRepository) Import(ctx context.Context, visit *domain.Visit) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertOrdinal,
		visit.IPAddress, visit.VisitDate, formatTime(visit.VisitedAt), nullString(visit.UserAgent))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		if id, err := res.LastInsertId(); err == nil {
			visit.ID = id
		}
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*domain.Visit, error) {
	var v domain.Visit
	var visitedAt string
	var userAgent sql.NullString
	if err := row.Scan(&v.ID, &v.IPAddress, &v.VisitDate, &visitedAt, &userAgent, &v.VisitorNumber); err != nil {
		return nil, err
	}
	t, err := parseTime(visitedAt)
	if err != nil {
		return nil, err
	}
	v.VisitedAt = t
	v.UserAgent = userAgent.String
	return &v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse visited_at %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure interface compliance
var _ ports.VisitRepository = (*SQLiteRepository)(nil)
