package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"realestate/internal/adapters/observability"
	"realestate/internal/domain"
)

const (
	StrategyScan    = "scan"
	StrategyCounter = "counter"
)

type AllocatorConfig struct {
	Strategy   string // scan|counter
	MaxRetries int    // candidates checked per call
	Fallback   bool   // timestamp id when the store cannot be consulted
}

// Allocator produces collision-checked PropertyIds.
//
// scan derives the next number from the numerically highest stored id, or
// the retired high-water mark of the sequence store when that is higher, and
// does not reserve anything; calling it twice without an insert yields the
// same candidate. counter draws from an atomic per-prefix sequence, seeded
// once per process from the stored maximum. Both check every candidate for
// an exact match and give up after MaxRetries with ErrMaxRetriesExceeded.
type Allocator struct {
	store  domain.ListingStore
	seq    domain.SequenceStore
	cfg    AllocatorConfig
	now    func() time.Time
	seeded sync.Map // prefix -> struct{}
}

func NewAllocator(store domain.ListingStore, seq domain.SequenceStore, cfg AllocatorConfig) *Allocator {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Strategy != StrategyCounter || seq == nil {
		cfg.Strategy = StrategyScan
	}
	return &Allocator{store: store, seq: seq, cfg: cfg, now: time.Now}
}

func (a *Allocator) Strategy() string { return a.cfg.Strategy }

func (a *Allocator) Allocate(ctx context.Context, k domain.Kind) (domain.Allocation, error) {
	next, err := a.first(ctx, k)
	if err != nil {
		return a.fallback(ctx, k, err)
	}
	for attempt := 0; attempt < a.cfg.MaxRetries; attempt++ {
		id := domain.FormatPropertyID(k.Prefix, next)
		taken, err := a.store.Exists(ctx, k, id)
		if err != nil {
			return a.fallback(ctx, k, err)
		}
		if !taken {
			observability.ObserveAllocation(a.cfg.Strategy, "ok")
			return domain.Allocation{PropertyID: id, Seq: next}, nil
		}
		observability.ObserveAllocation(a.cfg.Strategy, "collision")
		log.Debug().Str("kind", k.Path).Str("propertyId", id).Int("attempt", attempt+1).Msg("propertyId already taken")

		if next, err = a.bump(ctx, k, next); err != nil {
			return a.fallback(ctx, k, err)
		}
	}
	observability.ObserveAllocation(a.cfg.Strategy, "exhausted")
	return domain.Allocation{}, fmt.Errorf("%s after %d candidates: %w", k.Prefix, a.cfg.MaxRetries, domain.ErrMaxRetriesExceeded)
}

func (a *Allocator) first(ctx context.Context, k domain.Kind) (int64, error) {
	if a.cfg.Strategy == StrategyScan {
		top, err := a.store.MaxSeq(ctx, k)
		if err != nil {
			return 0, err
		}
		if a.seq != nil {
			// numbers of deleted listings stay retired
			hw, err := a.seq.Current(ctx, k.Prefix)
			if err != nil {
				return 0, err
			}
			top = max(top, hw)
		}
		return top + 1, nil
	}
	if err := a.seedOnce(ctx, k); err != nil {
		return 0, err
	}
	return a.seq.Next(ctx, k.Prefix)
}

func (a *Allocator) bump(ctx context.Context, k domain.Kind, cur int64) (int64, error) {
	if a.cfg.Strategy == StrategyScan {
		return cur + 1, nil
	}
	return a.seq.Next(ctx, k.Prefix)
}

func (a *Allocator) seedOnce(ctx context.Context, k domain.Kind) error {
	if _, ok := a.seeded.Load(k.Prefix); ok {
		return nil
	}
	top, err := a.store.MaxSeq(ctx, k)
	if err != nil {
		return err
	}
	if err := a.seq.Seed(ctx, k.Prefix, top); err != nil {
		return err
	}
	a.seeded.Store(k.Prefix, struct{}{})
	return nil
}

func (a *Allocator) fallback(ctx context.Context, k domain.Kind, cause error) (domain.Allocation, error) {
	if ctx.Err() != nil {
		return domain.Allocation{}, ctx.Err()
	}
	if !a.cfg.Fallback {
		return domain.Allocation{}, fmt.Errorf("allocate %s: %w", k.Prefix, cause)
	}
	id := domain.FallbackPropertyID(k.Prefix, a.now().UnixMilli())
	observability.ObserveAllocation(a.cfg.Strategy, "fallback")
	log.Warn().Err(cause).Str("kind", k.Path).Str("propertyId", id).Msg("id lookup failed, using timestamp id")
	return domain.Allocation{PropertyID: id, Fallback: true}, nil
}
