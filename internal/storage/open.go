// Package storage picks the listing store named by STORE_DRIVER.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"realestate/internal/domain"
	"realestate/internal/shared"
	"realestate/internal/storage/memory"
	mongostore "realestate/internal/storage/mongo"
	mysqlrepo "realestate/internal/storage/mysql"
)

// Backend is an opened store plus its sequence table.
type Backend struct {
	Listings  domain.ListingStore
	Sequences domain.SequenceStore
	Close     func(context.Context) error
}

// Open connects the configured driver and makes sure the unique
// propertyId index exists for every kind before returning.
func Open(ctx context.Context, cfg shared.Config) (Backend, error) {
	var b Backend
	switch cfg.StoreDriver {
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return Backend{}, err
		}
		db := client.Database(cfg.MongoDB)
		b = Backend{
			Listings:  mongostore.New(db),
			Sequences: mongostore.NewSequences(db),
			Close:     client.Disconnect,
		}
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return Backend{}, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return Backend{}, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		b = Backend{
			Listings:  mysqlrepo.New(db),
			Sequences: mysqlrepo.NewSequences(db),
			Close:     func(context.Context) error { return db.Close() },
		}
	case "memory":
		log.Warn().Msg("memory store selected; listings are lost on exit")
		b = Backend{
			Listings:  memory.New(),
			Sequences: memory.NewSequences(),
			Close:     func(context.Context) error { return nil },
		}
	default:
		return Backend{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if err := b.Listings.EnsureIndexes(ctx, domain.Kinds()); err != nil {
		_ = b.Close(ctx)
		return Backend{}, fmt.Errorf("ensure indexes: %w", err)
	}
	return b, nil
}
