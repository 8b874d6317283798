package app

import (
	"context"
	"fmt"
	"time"

	"realestate/internal/domain"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// first pages with these limits are cached and busted on every write
var cachedLimits = []int{DefaultPageLimit, 50, MaxPageLimit}

type QueryService struct {
	store    domain.ListingStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ListingStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) Get(ctx context.Context, k domain.Kind, ref string) (domain.Listing, error) {
	key := listingKey(k, ref)
	var l domain.Listing
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &l); ok {
			return s.restore(k, l), nil
		}
	}
	l, err := resolve(ctx, s.store, k, ref)
	if err != nil {
		return domain.Listing{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, l, int(s.cacheTTL.Seconds()))
	}
	return l, nil
}

func (s *QueryService) List(ctx context.Context, k domain.Kind, q domain.ListQuery) (domain.ListingsPage, error) {
	q = NormalizeListQuery(q)
	cacheable := s.cache != nil && q.Page == 1 && isCachedLimit(q.Limit)
	key := pageKey(k, q.Limit)

	var out domain.ListingsPage
	if cacheable {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			for i := range out.Items {
				out.Items[i] = s.restore(k, out.Items[i])
			}
			return out, nil
		}
	}
	out, err := s.store.List(ctx, k, q)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	out.Page, out.Limit = q.Page, q.Limit
	if out.Items == nil {
		out.Items = []domain.Listing{}
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// restore fills what the JSON form leaves out.
func (s *QueryService) restore(k domain.Kind, l domain.Listing) domain.Listing {
	l.Kind = k.Path
	l.Seq = domain.SeqOf(k.Prefix, l.PropertyID)
	return l
}

func NormalizeListQuery(q domain.ListQuery) domain.ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

func isCachedLimit(limit int) bool {
	for _, l := range cachedLimits {
		if l == limit {
			return true
		}
	}
	return false
}

func listingKey(k domain.Kind, ref string) string {
	return fmt.Sprintf("listing:%s:%s", k.Collection, ref)
}

func pageKey(k domain.Kind, limit int) string {
	return fmt.Sprintf("listings:%s:p1:l%d", k.Collection, limit)
}

func invalidationKeys(k domain.Kind, l domain.Listing) []string {
	keys := make([]string, 0, 2+len(cachedLimits))
	if l.ID != "" {
		keys = append(keys, listingKey(k, l.ID))
	}
	if l.PropertyID != "" {
		keys = append(keys, listingKey(k, l.PropertyID))
	}
	for _, lim := range cachedLimits {
		keys = append(keys, pageKey(k, lim))
	}
	return keys
}
