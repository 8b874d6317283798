package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/domain"
	"realestate/internal/storage/memory"
)

func kind(t *testing.T, path string) domain.Kind {
	t.Helper()
	k, ok := domain.LookupKind(path)
	require.True(t, ok)
	return k
}

func TestStore_UniquePropertyIDPerKind(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	k := kind(t, "commercial/lease/others")
	other := kind(t, "commercial/sell/others")

	a := domain.Listing{PropertyID: "RA-COMLEOT0001", Seq: 1}
	require.NoError(t, s.Insert(ctx, k, &a))
	assert.NotEmpty(t, a.ID)

	b := domain.Listing{PropertyID: "RA-COMLEOT0001", Seq: 1}
	assert.ErrorIs(t, s.Insert(ctx, k, &b), domain.ErrDuplicatePropertyID)

	// collections are independent
	c := domain.Listing{PropertyID: "RA-COMLEOT0001", Seq: 1}
	assert.NoError(t, s.Insert(ctx, other, &c))
}

func TestStore_MaxSeqIgnoresFallbackIDs(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	k := kind(t, "commercial/lease/others")

	n, err := s.MaxSeq(ctx, k)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, l := range []domain.Listing{
		{PropertyID: "RA-COMLEOT0009", Seq: 9},
		{PropertyID: "RA-COMLEOT0010", Seq: 10},
		{PropertyID: "RA-COMLEOT87654321"},
	} {
		l := l
		require.NoError(t, s.Insert(ctx, k, &l))
	}
	n, err = s.MaxSeq(ctx, k)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

func TestStore_ReplaceKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	k := kind(t, "residential/rent/villa")

	l := domain.Listing{PropertyID: "RA-RESREVI0001", Seq: 1, Attributes: map[string]any{"a": 1.0}}
	require.NoError(t, s.Insert(ctx, k, &l))

	upd := l
	upd.PropertyID = "RA-RESREVI0999"
	upd.Version = 7
	upd.Attributes = map[string]any{"a": 2.0}
	require.NoError(t, s.Replace(ctx, k, upd))

	got, err := s.GetByPropertyID(ctx, k, "RA-RESREVI0001")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Attributes["a"])
	assert.Zero(t, got.Version)

	_, err = s.GetByPropertyID(ctx, k, "RA-RESREVI0999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.Replace(ctx, k, domain.Listing{ID: "missing"}), domain.ErrNotFound)
}

func TestStore_ReturnedListingsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	k := kind(t, "residential/rent/villa")

	l := domain.Listing{PropertyID: "RA-RESREVI0001", Seq: 1, Attributes: map[string]any{"m": map[string]any{"x": "1"}}}
	require.NoError(t, s.Insert(ctx, k, &l))
	l.Attributes["m"].(map[string]any)["x"] = "changed"

	got, err := s.Get(ctx, k, l.ID)
	require.NoError(t, err)
	got.Attributes["m"].(map[string]any)["x"] = "changed again"

	again, err := s.Get(ctx, k, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", again.Attributes["m"].(map[string]any)["x"])
}

func TestStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	k := kind(t, "commercial/rent/shop")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := int64(1); i <= 5; i++ {
		l := domain.Listing{
			PropertyID: domain.FormatPropertyID(k.Prefix, i),
			Seq:        i,
			Metadata:   domain.Metadata{CreatedAt: base.Add(time.Duration(i) * time.Minute)},
		}
		require.NoError(t, s.Insert(ctx, k, &l))
		ids = append(ids, l.ID)
	}

	p, err := s.List(ctx, k, domain.ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, p.Total)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "RA-COMRESH0003", p.Items[0].PropertyID)
	assert.Equal(t, "RA-COMRESH0002", p.Items[1].PropertyID)

	p, err = s.List(ctx, k, domain.ListQuery{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, p.Items)

	require.NoError(t, s.Delete(ctx, k, ids[0]))
	assert.ErrorIs(t, s.Delete(ctx, k, ids[0]), domain.ErrNotFound)
	ok, err := s.Exists(ctx, k, "RA-COMRESH0001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSequences_CurrentDoesNotMove(t *testing.T) {
	ctx := context.Background()
	q := memory.NewSequences()
	n, err := q.Current(ctx, "RA-COMLEOT")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, q.Seed(ctx, "RA-COMLEOT", 3))
	n, _ = q.Current(ctx, "RA-COMLEOT")
	assert.EqualValues(t, 3, n)
	n, _ = q.Current(ctx, "RA-COMLEOT")
	assert.EqualValues(t, 3, n)
}

func TestSequences_SeedNeverLowers(t *testing.T) {
	ctx := context.Background()
	q := memory.NewSequences()

	require.NoError(t, q.Seed(ctx, "RA-X", 10))
	require.NoError(t, q.Seed(ctx, "RA-X", 3))
	n, err := q.Next(ctx, "RA-X")
	require.NoError(t, err)
	assert.EqualValues(t, 11, n)

	n, err = q.Next(ctx, "RA-Y")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
