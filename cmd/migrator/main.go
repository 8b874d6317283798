package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"realestate/internal/adapters/legacy"
	"realestate/internal/adapters/observability"
	"realestate/internal/app"
	"realestate/internal/domain"
	"realestate/internal/shared"
	"realestate/internal/storage"
)

// migrator copies every listing from the legacy API into the configured
// store, keeping the original PropertyIds. Re-running it is safe.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "listings-migrator")

	log.Info().
		Str("base", cfg.LegacyBase).
		Int("workers", cfg.MigrateWorkers).
		Str("store", cfg.StoreDriver).
		Msg("migrator starting")

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}

	client, err := legacy.New(cfg.LegacyBase, cfg.LegacyKey, cfg.LegacyRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize legacy client")
	}
	// import keeps legacy ids, so no allocator
	svc := app.NewListingService(backend.Listings, nil, backend.Sequences, nil, cfg.IDMaxRetries)

	workers := cfg.MigrateWorkers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg                        sync.WaitGroup
		imported, skipped, failed atomic.Int64
	)

	for _, k := range domain.Kinds() {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("migration interrupted")
			break
		}

		wg.Add(1)
		go func(k domain.Kind) {
			defer wg.Done()
			defer sem.Release(1)

			docs, err := client.FetchListings(ctx, k)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("kind", k.Path).Str("err_type", observability.LabelErr(err)).Err(err).Msg("fetch failed")
				return
			}
			for _, doc := range docs {
				target := k
				// documents filed under the wrong path go where their id says
				if pid, _ := doc[domain.KeyPropertyID].(string); pid != "" {
					if owner, ok := domain.KindOfPropertyID(pid); ok && owner.Path != k.Path {
						log.Warn().Str("kind", k.Path).Str("propertyId", pid).Str("owner", owner.Path).Msg("rerouting misfiled listing")
						target = owner
					}
				}
				_, created, err := svc.Import(ctx, target, doc)
				switch {
				case err != nil:
					failed.Add(1)
					log.Warn().Str("kind", k.Path).Interface("propertyId", doc[domain.KeyPropertyID]).Err(err).Msg("import failed")
				case created:
					imported.Add(1)
				default:
					skipped.Add(1)
				}
			}
			log.Info().Str("kind", k.Path).Int("docs", len(docs)).Msg("kind migrated")
		}(k)
	}

	wg.Wait()
	log.Info().
		Int64("imported", imported.Load()).
		Int64("skipped", skipped.Load()).
		Int64("failed", failed.Load()).
		Msg("migration completed")
	if err := backend.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("store close failed")
	}
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
