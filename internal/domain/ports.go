package domain

import "context"

type ListingStore interface {
	// Allocation support
	MaxSeq(ctx context.Context, k Kind) (int64, error)
	Exists(ctx context.Context, k Kind, propertyID string) (bool, error)

	// Write paths
	Insert(ctx context.Context, k Kind, l *Listing) error // sets l.ID; ErrDuplicatePropertyID on unique violation
	Replace(ctx context.Context, k Kind, l Listing) error
	Delete(ctx context.Context, k Kind, id string) error

	// Read paths
	Get(ctx context.Context, k Kind, id string) (Listing, error)
	GetByPropertyID(ctx context.Context, k Kind, propertyID string) (Listing, error)
	List(ctx context.Context, k Kind, q ListQuery) (ListingsPage, error)

	EnsureIndexes(ctx context.Context, kinds []Kind) error
}

// SequenceStore hands out per-prefix counters atomically.
type SequenceStore interface {
	// Seed raises the counter to at least floor. Never lowers it.
	Seed(ctx context.Context, prefix string, floor int64) error
	Next(ctx context.Context, prefix string) (int64, error)
	// Current reads the counter without moving it; 0 when never set.
	Current(ctx context.Context, prefix string) (int64, error)
}

// Allocation is one candidate PropertyId. Fallback ids carry Seq 0 so they
// never move the numeric maximum of the sequence.
type Allocation struct {
	PropertyID string
	Seq        int64
	Fallback   bool
}

type IDAllocator interface {
	Allocate(ctx context.Context, k Kind) (Allocation, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, keys ...string) error
}

// LegacySource reads listings from the system being migrated away from.
type LegacySource interface {
	FetchListings(ctx context.Context, k Kind) ([]map[string]any, error)
}
