package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"realestate/internal/domain"
)

type ListingService struct {
	store      domain.ListingStore
	alloc      domain.IDAllocator
	seq        domain.SequenceStore
	cache      domain.Cache
	maxRetries int
	now        func() time.Time
}

// NewListingService wires the write paths. cache may be nil. alloc may be
// nil for an import-only service. Without seq, scan allocation cannot
// remember numbers retired by deletes. maxRetries bounds how many times a create re-allocates after losing an
// insert race on the unique propertyId index.
func NewListingService(store domain.ListingStore, alloc domain.IDAllocator, seq domain.SequenceStore, cache domain.Cache, maxRetries int) *ListingService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ListingService{store: store, alloc: alloc, seq: seq, cache: cache, maxRetries: maxRetries, now: time.Now}
}

func (s *ListingService) Create(ctx context.Context, k domain.Kind, body map[string]any, actor string) (domain.Listing, error) {
	if s.alloc == nil {
		return domain.Listing{}, errors.New("create: no propertyId allocator configured")
	}
	l, err := newListing(k, body, actor, s.now())
	if err != nil {
		return domain.Listing{}, err
	}

	for attempt := 1; ; attempt++ {
		a, err := s.alloc.Allocate(ctx, k)
		if err != nil {
			return domain.Listing{}, err
		}
		l.ID, l.PropertyID, l.Seq = "", a.PropertyID, a.Seq

		err = s.store.Insert(ctx, k, &l)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicatePropertyID) {
			return domain.Listing{}, fmt.Errorf("insert %s: %w", k.Path, err)
		}
		// lost the race to a concurrent create; the next allocation sees its row
		log.Info().Str("kind", k.Path).Str("propertyId", a.PropertyID).Int("attempt", attempt).Msg("propertyId taken at insert, reallocating")
		if attempt >= s.maxRetries {
			return domain.Listing{}, fmt.Errorf("insert %s: %w", k.Path, domain.ErrMaxRetriesExceeded)
		}
	}

	s.invalidate(ctx, k, l)
	log.Info().Str("kind", k.Path).Str("propertyId", l.PropertyID).Str("id", l.ID).Msg("listing created")
	return l, nil
}

func (s *ListingService) Update(ctx context.Context, k domain.Kind, ref string, patch map[string]any) (domain.Listing, error) {
	cur, err := resolve(ctx, s.store, k, ref)
	if err != nil {
		return domain.Listing{}, err
	}
	merged, err := mergeListing(cur, patch, s.now())
	if err != nil {
		return domain.Listing{}, err
	}
	if err := s.store.Replace(ctx, k, merged); err != nil {
		return domain.Listing{}, err
	}
	s.invalidate(ctx, k, merged)
	return merged, nil
}

func (s *ListingService) Delete(ctx context.Context, k domain.Kind, ref string) (domain.Listing, error) {
	cur, err := resolve(ctx, s.store, k, ref)
	if err != nil {
		return domain.Listing{}, err
	}
	if s.seq != nil && cur.Seq > 0 {
		// retire the number before the row goes so it is never handed out again
		if err := s.seq.Seed(ctx, k.Prefix, cur.Seq); err != nil {
			return domain.Listing{}, fmt.Errorf("retire %s: %w", cur.PropertyID, err)
		}
	}
	if err := s.store.Delete(ctx, k, cur.ID); err != nil {
		return domain.Listing{}, err
	}
	s.invalidate(ctx, k, cur)
	return cur, nil
}

// Import stores a legacy document under its original PropertyId. It
// returns false when the id is already present. The counter for the
// prefix is raised to the imported number so new ids continue after it.
func (s *ListingService) Import(ctx context.Context, k domain.Kind, doc map[string]any) (domain.Listing, bool, error) {
	l, err := legacyListing(k, doc, s.now())
	if err != nil {
		return domain.Listing{}, false, err
	}
	exists, err := s.store.Exists(ctx, k, l.PropertyID)
	if err != nil {
		return domain.Listing{}, false, err
	}
	if exists {
		return domain.Listing{}, false, nil
	}
	if err := s.store.Insert(ctx, k, &l); err != nil {
		if errors.Is(err, domain.ErrDuplicatePropertyID) {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, err
	}
	if s.seq != nil {
		if err := s.seq.Seed(ctx, k.Prefix, l.Seq); err != nil {
			return l, true, fmt.Errorf("seed %s: %w", k.Prefix, err)
		}
	}
	s.invalidate(ctx, k, l)
	return l, true, nil
}

// resolve accepts either a PropertyId of this kind or an internal id.
func resolve(ctx context.Context, store domain.ListingStore, k domain.Kind, ref string) (domain.Listing, error) {
	if _, ok := domain.ParsePropertyID(k.Prefix, ref); ok {
		return store.GetByPropertyID(ctx, k, ref)
	}
	return store.Get(ctx, k, ref)
}

func (s *ListingService) invalidate(ctx context.Context, k domain.Kind, l domain.Listing) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, invalidationKeys(k, l)...); err != nil {
		log.Warn().Err(err).Str("kind", k.Path).Msg("cache invalidation failed")
	}
}
