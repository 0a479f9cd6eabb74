package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/repository"
)

// upserter is the write side of the discount catalog used by the import.
type upserter interface {
	Upsert(ctx context.Context, d *discount.Definition) error
}

type options struct {
	files    []string
	workers  int
	estimate uint
	dryRun   bool
}

// stats counts import outcomes. Fields are updated by concurrent workers.
type stats struct {
	written   atomic.Int64
	malformed atomic.Int64
	duplicate atomic.Int64
	conflict  atomic.Int64
}

func main() {
	var (
		databaseURL string
		pattern     string
		opts        options
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&pattern, "files", "data/discounts*.jsonl.gz", "glob of gzip JSON-lines discount files")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent upserts")
	flag.UintVar(&opts.estimate, "estimate", 1_000_000, "expected number of records, sizes the bloom filter")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "screen and validate without writing")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !opts.dryRun {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	opts.files, err = filepath.Glob(pattern)
	if err != nil {
		lg.Fatal("Invalid file pattern", zap.String("pattern", pattern), zap.Error(err))
	}
	if len(opts.files) == 0 {
		lg.Fatal("No input files matched", zap.String("pattern", pattern))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, opts); err != nil {
		lg.Fatal("Discount import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, opts options) error {
	dups, err := screenDuplicates(ctx, lg, opts.files, opts.estimate)
	if err != nil {
		return errors.Wrap(err, "screen duplicates")
	}

	var repo upserter = dryRun{}
	if !opts.dryRun {
		pool, err := repository.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()
		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		repo = repository.NewDiscountRepository(pool)
	}

	var st stats
	if err := importFiles(ctx, lg, repo, opts, dups, &st); err != nil {
		return err
	}
	lg.Info("Discount import complete",
		zap.Int64("written", st.written.Load()),
		zap.Int64("malformed", st.malformed.Load()),
		zap.Int64("duplicate", st.duplicate.Load()),
		zap.Int64("conflict", st.conflict.Load()),
		zap.Bool("dry_run", opts.dryRun),
	)
	return nil
}

// importFiles normalizes and upserts every record whose code is unique across
// the input. Malformed records, duplicated codes and catalog conflicts are
// logged and counted; storage failures abort the import.
func importFiles(ctx context.Context, lg *zap.Logger, repo upserter, opts options, dups map[string]int, st *stats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.workers, 1))

	for _, path := range opts.files {
		err := streamFile(ctx, path, func(r record) error {
			if r.err != nil {
				st.malformed.Add(1)
				lg.Warn("Skipping malformed record",
					zap.String("file", r.file),
					zap.Int("line", r.line),
					zap.Error(r.err),
				)
				return nil
			}
			def := discount.Normalize(r.def)
			if n, ok := dups[def.Code]; ok {
				st.duplicate.Add(1)
				lg.Warn("Skipping duplicated code",
					zap.String("code", def.Code),
					zap.Int("occurrences", n),
					zap.String("file", r.file),
					zap.Int("line", r.line),
				)
				return nil
			}

			g.Go(func() error {
				err := repo.Upsert(ctx, &def)
				var conflict *discount.ConflictError
				switch {
				case err == nil:
					st.written.Add(1)
					return nil
				case errors.As(err, &conflict):
					st.conflict.Add(1)
					lg.Warn("Skipping conflicting code",
						zap.String("code", def.Code),
						zap.String("id", def.ID),
						zap.Error(err),
					)
					return nil
				default:
					return errors.Wrapf(err, "upsert %s", def.ID)
				}
			})
			return nil
		})
		if err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return errors.Wrapf(err, "import %s", path)
		}
		lg.Info("File queued", zap.String("file", path))
	}
	return g.Wait()
}

type dryRun struct{}

func (dryRun) Upsert(context.Context, *discount.Definition) error { return nil }
