package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/shailyverma/art-studio/db"
	"github.com/shailyverma/art-studio/internal/domain/catalog"
	"github.com/shailyverma/art-studio/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file (defaults to the embedded catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	data := db.Catalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		var err error
		if data, err = os.ReadFile(catalogFile); err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}

	seed, err := catalog.ParseSeed(data)
	if err != nil {
		return err
	}
	// Reject catalogs the API server would refuse to start with.
	if _, err := catalog.NewStatic(seed.Paintings, seed.Courses); err != nil {
		return errors.Wrap(err, "validate catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.SeedCatalog(ctx, pool, seed); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	slog.Info("catalog seeded",
		slog.Int("paintings", len(seed.Paintings)),
		slog.Int("courses", len(seed.Courses)),
	)
	return nil
}
