package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/config"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/core/domain"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/logger"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

const usage = "expected 'export' or 'import' subcommands"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand. stdout only ever carries export data; logs go
// to stderr so that `export > file` stays valid JSON.
func run(args []string, stdout, stderr io.Writer) int {
	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportCmd.SetOutput(stderr)
	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importCmd.SetOutput(stderr)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(args) < 1 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	cfg := config.Load()
	if err := logger.Init(logger.Options{Level: cfg.LogLevel, Output: stderr}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx := context.Background()

	switch args[0] {
	case "export":
		if err := exportCmd.Parse(args[1:]); err != nil {
			return 1
		}
		repo, err := repository.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to db")
			return 1
		}
		defer repo.Close()

		if err := doExport(ctx, repo, stdout); err != nil {
			log.Error().Err(err).Msg("export failed")
			return 1
		}
	case "import":
		if err := importCmd.Parse(args[1:]); err != nil {
			return 1
		}
		if *importFile == "" {
			importCmd.PrintDefaults()
			return 1
		}
		f, err := os.Open(*importFile)
		if err != nil {
			log.Error().Err(err).Msg("failed to open file")
			return 1
		}
		defer f.Close()

		repo, err := repository.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to db")
			return 1
		}
		defer repo.Close()

		res, err := doImport(ctx, repo, f)
		if err != nil {
			log.Error().Err(err).Msg("import failed")
			return 1
		}
		log.Info().
			Int("imported", res.Imported).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Msg("import finished")
		if res.Failed > 0 {
			return 1
		}
	default:
		fmt.Fprintln(stderr, usage)
		return 1
	}
	return 0
}

func doExport(ctx context.Context, repo ports.VisitRepository, w io.Writer) error {
	visits, err := repo.Dump(ctx)
	if err != nil {
		return err
	}
	if visits == nil {
		visits = []domain.Visit{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(visits)
}

type importResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// doImport replays an export in order. Pairs of (ip, date) already in the
// store are skipped so the command can be rerun. Records the store rejects
// are counted as failed and the rest still go in.
func doImport(ctx context.Context, repo ports.VisitRepository, r io.Reader) (importResult, error) {
	var res importResult
	var visits []domain.Visit
	if err := json.NewDecoder(r).Decode(&visits); err != nil {
		return res, fmt.Errorf("decode: %w", err)
	}

	for i := range visits {
		v := &visits[i]
		ok, err := repo.Import(ctx, v)
		if err != nil {
			log.Error().Err(err).Str("ip", v.IPAddress).Str("date", v.VisitDate).Msg("failed to import visit")
			res.Failed++
			continue
		}
		if !ok {
			log.Debug().Str("ip", v.IPAddress).Str("date", v.VisitDate).Msg("skipping existing visit")
			res.Skipped++
			continue
		}
		res.Imported++
	}
	return res, nil
}
