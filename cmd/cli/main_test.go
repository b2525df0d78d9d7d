package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/domain"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

var at = time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src, err := sqlite.NewSQLiteRepository("file:cli_src?mode=memory&cache=shared")
	require.NoError(t, err)
	defer src.Close()

	for _, ip := range []string{"a", "b"} {
		_, err := src.RecordVisit(ctx, &domain.Visit{IPAddress: ip, VisitDate: "2026-10-18", VisitedAt: at})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, doExport(ctx, src, &buf))

	var exported []domain.Visit
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, int64(2), exported[1].VisitorNumber)

	dst, err := sqlite.NewSQLiteRepository("file:cli_dst?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dst.Close()

	res, err := doImport(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 2}, res)

	// rerunning is harmless
	res, err = doImport(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, importResult{Skipped: 2}, res)
}

func TestExport_EmptyStore(t *testing.T) {
	repo, err := sqlite.NewSQLiteRepository("file:cli_empty?mode=memory&cache=shared")
	require.NoError(t, err)
	defer repo.Close()

	var buf bytes.Buffer
	require.NoError(t, doExport(context.Background(), repo, &buf))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestImport_InvalidJSON(t *testing.T) {
	repo, err := sqlite.NewSQLiteRepository("file:cli_bad?mode=memory&cache=shared")
	require.NoError(t, err)
	defer repo.Close()

	_, err = doImport(context.Background(), repo, strings.NewReader("{not json"))
	assert.Error(t, err)
}

// failingRepo rejects imports for one IP
type failingRepo struct {
	ports.VisitRepository
	failIP string
}

func (f *failingRepo) Import(ctx context.Context, v *domain.Visit) (bool, error) {
	if v.IPAddress == f.failIP {
		return false, errors.New("disk full")
	}
	return f.VisitRepository.Import(ctx, v)
}

func TestImport_CountsFailures(t *testing.T) {
	repo, err := sqlite.NewSQLiteRepository("file:cli_fail?mode=memory&cache=shared")
	require.NoError(t, err)
	defer repo.Close()

	payload := `[
		{"ip_address":"a","visit_date":"2026-10-18","visited_at":"2026-10-18T09:00:00Z","visitor_number":1},
		{"ip_address":"b","visit_date":"2026-10-18","visited_at":"2026-10-18T09:01:00Z","visitor_number":2},
		{"ip_address":"c","visit_date":"2026-10-18","visited_at":"2026-10-18T09:02:00Z","visitor_number":3}
	]`
	res, err := doImport(context.Background(), &failingRepo{VisitRepository: repo, failIP: "b"}, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 2, Failed: 1}, res)
}

func TestRun_ExportThenImport(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.sqlite")
	dstPath := filepath.Join(dir, "dst.sqlite")

	src, err := sqlite.NewSQLiteRepository("file:" + srcPath)
	require.NoError(t, err)
	for _, ip := range []string{"a", "b", "c"} {
		_, err := src.RecordVisit(context.Background(), &domain.Visit{IPAddress: ip, VisitDate: "2026-10-18", VisitedAt: at})
		require.NoError(t, err)
	}
	require.NoError(t, src.Close())

	t.Setenv("DATABASE_URL", "file:"+srcPath)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"export"}, &stdout, &stderr))

	// logs never reach stdout
	assert.Contains(t, stderr.String(), "logger initialized")
	var exported []domain.Visit
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &exported))
	require.Len(t, exported, 3)

	exportFile := filepath.Join(dir, "visits.json")
	require.NoError(t, os.WriteFile(exportFile, stdout.Bytes(), 0o644))

	t.Setenv("DATABASE_URL", "file:"+dstPath)
	stdout.Reset()
	stderr.Reset()
	require.Equal(t, 0, run([]string{"import", "-file", exportFile}, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	dst, err := sqlite.NewSQLiteRepository("file:" + dstPath)
	require.NoError(t, err)
	defer dst.Close()
	count, err := dst.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(nil, &stdout, &stderr))
	assert.Equal(t, 1, run([]string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), usage)
	assert.Empty(t, stdout.String())
}
