// Package memory keeps listings in process memory. It enforces the same
// propertyId uniqueness as the database adapters and backs the unit tests
// and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"realestate/internal/domain"
)

type collection struct {
	byID  map[string]domain.Listing
	byPID map[string]string // propertyId -> id
}

type Store struct {
	mu   sync.RWMutex
	cols map[string]*collection
}

func New() *Store { return &Store{cols: make(map[string]*collection)} }

func (s *Store) col(k domain.Kind) *collection {
	c, ok := s.cols[k.Collection]
	if !ok {
		c = &collection{byID: map[string]domain.Listing{}, byPID: map[string]string{}}
		s.cols[k.Collection] = c
	}
	return c
}

// view is col for readers; it never creates a collection.
func (s *Store) view(k domain.Kind) *collection {
	if c, ok := s.cols[k.Collection]; ok {
		return c
	}
	return &collection{}
}

// MaxSeq is the highest stored Seq. Fallback ids carry Seq 0 and never count.
func (s *Store) MaxSeq(ctx context.Context, k domain.Kind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, l := range s.view(k).byID {
		if l.Seq > max {
			max = l.Seq
		}
	}
	return max, nil
}

func (s *Store) Exists(ctx context.Context, k domain.Kind, propertyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.view(k).byPID[propertyID]
	return ok, nil
}

func (s *Store) Insert(ctx context.Context, k domain.Kind, l *domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.col(k)
	if _, dup := c.byPID[l.PropertyID]; dup {
		return domain.ErrDuplicatePropertyID
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Kind = k.Path
	c.byID[l.ID] = l.Clone()
	c.byPID[l.PropertyID] = l.ID
	return nil
}

func (s *Store) Replace(ctx context.Context, k domain.Kind, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.col(k)
	cur, ok := c.byID[l.ID]
	if !ok {
		return domain.ErrNotFound
	}
	// identity fields are immutable
	l.PropertyID, l.Seq, l.Version, l.Kind = cur.PropertyID, cur.Seq, cur.Version, cur.Kind
	c.byID[l.ID] = l.Clone()
	return nil
}

func (s *Store) Delete(ctx context.Context, k domain.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.col(k)
	cur, ok := c.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(c.byID, id)
	delete(c.byPID, cur.PropertyID)
	return nil
}

func (s *Store) Get(ctx context.Context, k domain.Kind, id string) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.view(k).byID[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (s *Store) GetByPropertyID(ctx context.Context, k domain.Kind, propertyID string) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.view(k)
	id, ok := c.byPID[propertyID]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return c.byID[id].Clone(), nil
}

func (s *Store) List(ctx context.Context, k domain.Kind, q domain.ListQuery) (domain.ListingsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.view(k)
	all := make([]domain.Listing, 0, len(c.byID))
	for _, l := range c.byID {
		all = append(all, l)
	}
	// newest first; seq breaks ties between listings created in the same instant
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Metadata.CreatedAt.Equal(all[j].Metadata.CreatedAt) {
			return all[i].Metadata.CreatedAt.After(all[j].Metadata.CreatedAt)
		}
		return all[i].Seq > all[j].Seq
	})
	page := domain.ListingsPage{Total: int64(len(all)), Page: q.Page, Limit: q.Limit, Items: []domain.Listing{}}
	start := (q.Page - 1) * q.Limit
	if start < 0 || start >= len(all) {
		return page, nil
	}
	end := start + q.Limit
	if end > len(all) {
		end = len(all)
	}
	for _, l := range all[start:end] {
		page.Items = append(page.Items, l.Clone())
	}
	return page, nil
}

func (s *Store) EnsureIndexes(ctx context.Context, kinds []domain.Kind) error { return nil }

// Sequences is an in-process SequenceStore.
type Sequences struct {
	mu  sync.Mutex
	seq map[string]int64
}

func NewSequences() *Sequences { return &Sequences{seq: make(map[string]int64)} }

func (q *Sequences) Seed(ctx context.Context, prefix string, floor int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if floor > q.seq[prefix] {
		q.seq[prefix] = floor
	}
	return nil
}

func (q *Sequences) Current(ctx context.Context, prefix string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seq[prefix], nil
}

func (q *Sequences) Next(ctx context.Context, prefix string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq[prefix]++
	return q.seq[prefix], nil
}
