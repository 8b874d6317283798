package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/app"
	"realestate/internal/domain"
	"realestate/internal/storage/memory"
)

func newService(s domain.ListingStore, seq domain.SequenceStore, c domain.Cache) *app.ListingService {
	a := app.NewAllocator(s, seq, app.AllocatorConfig{MaxRetries: 5, Fallback: true})
	return app.NewListingService(s, a, seq, c, 5)
}

func TestCreate_StampsMetadataAndDropsReservedKeys(t *testing.T) {
	svc := newService(memory.New(), nil, nil)
	l, err := svc.Create(context.Background(), leaseOthers, map[string]any{
		"_id":              "mine",
		"propertyId":       "RA-COMLEOT9000",
		"__v":              3,
		"basicInformation": map[string]any{"title": "  Sea view  "},
		"metadata":         map[string]any{"status": "Sold", "createdBy": "spoof"},
	}, "")
	require.NoError(t, err)

	assert.NotEqual(t, "mine", l.ID)
	assert.Equal(t, "RA-COMLEOT0001", l.PropertyID)
	assert.Zero(t, l.Version)
	assert.Equal(t, "system", l.Metadata.CreatedBy)
	assert.Equal(t, "Sold", l.Metadata.Status)
	assert.Equal(t, "Sea view", l.Metadata.PropertyName)
	assert.Equal(t, leaseOthers.Label, l.Metadata.PropertyType)
	assert.Nil(t, l.Metadata.UpdatedAt)
	assert.NotContains(t, l.Attributes, "_id")
	assert.NotContains(t, l.Attributes, "metadata")
}

func TestCreate_RetriesAfterLosingInsertRace(t *testing.T) {
	s := newFlaky()
	s.dupInsert = 2
	svc := newService(s, nil, nil)

	l, err := svc.Create(context.Background(), leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	assert.Equal(t, "RA-COMLEOT0001", l.PropertyID)
	assert.Equal(t, 3, s.inserts)
}

func TestCreate_InsertRetriesAreBounded(t *testing.T) {
	s := newFlaky()
	s.dupInsert = 100
	svc := newService(s, nil, nil)

	_, err := svc.Create(context.Background(), leaseOthers, map[string]any{}, "u")
	assert.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)
	assert.Equal(t, 5, s.inserts)
}

func TestCreate_RejectsInvalidBody(t *testing.T) {
	svc := newService(memory.New(), nil, nil)
	_, err := svc.Create(context.Background(), leaseOthers, map[string]any{"basicInformation": "x"}, "u")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "basicInformation", ve.Field)
}

func TestUpdate_MergesAndKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := newJSONCache()
	svc := newService(store, nil, cache)

	created, err := svc.Create(ctx, leaseOthers, map[string]any{
		"basicInformation": map[string]any{"title": "A", "city": "Pune"},
		"amenities":        []any{"lift"},
	}, "u")
	require.NoError(t, err)

	got, err := svc.Update(ctx, leaseOthers, created.PropertyID, map[string]any{
		"propertyId":       "RA-COMLEOT0999",
		"basicInformation": map[string]any{"title": "B"},
		"amenities":        []any{"parking"},
		"metadata":         map[string]any{"status": "Rented"},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.PropertyID, got.PropertyID)
	assert.Equal(t, created.Metadata.CreatedAt, got.Metadata.CreatedAt)
	assert.Equal(t, "Rented", got.Metadata.Status)
	require.NotNil(t, got.Metadata.UpdatedAt)
	bi := got.Attributes["basicInformation"].(map[string]any)
	assert.Equal(t, "B", bi["title"])
	assert.Equal(t, "Pune", bi["city"])
	assert.Equal(t, []any{"parking"}, got.Attributes["amenities"])

	stored, err := store.Get(ctx, leaseOthers, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", stored.Attributes["basicInformation"].(map[string]any)["title"])
	assert.Contains(t, cache.dels, "listing:commercial_lease_others:"+created.PropertyID)
}

func TestUpdateDelete_Missing(t *testing.T) {
	svc := newService(memory.New(), nil, nil)
	_, err := svc.Update(context.Background(), leaseOthers, "RA-COMLEOT0042", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Delete(context.Background(), leaseOthers, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_FreesNothingButRemoves(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store, nil, nil)

	a, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	b, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)

	gone, err := svc.Delete(ctx, leaseOthers, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.PropertyID, gone.PropertyID)

	c, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	assert.Equal(t, "RA-COMLEOT0003", c.PropertyID, "numbering continues after %s", b.PropertyID)
}

func TestDelete_NewestNumberIsNeverReissued(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seqs := memory.NewSequences()
	svc := newService(store, seqs, nil)

	_, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	newest, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	require.Equal(t, "RA-COMLEOT0002", newest.PropertyID)

	_, err = svc.Delete(ctx, leaseOthers, newest.PropertyID)
	require.NoError(t, err)
	hw, err := seqs.Current(ctx, leaseOthers.Prefix)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hw)

	next, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	assert.Equal(t, "RA-COMLEOT0003", next.PropertyID)

	// emptying the kind entirely still does not restart numbering
	for _, ref := range []string{"RA-COMLEOT0001", next.PropertyID} {
		_, err = svc.Delete(ctx, leaseOthers, ref)
		require.NoError(t, err)
	}
	again, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	assert.Equal(t, "RA-COMLEOT0004", again.PropertyID)
}

func TestImport_KeepsIDAndSeedsSequence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seqs := memory.NewSequences()
	svc := newService(store, seqs, nil)

	doc := map[string]any{
		"propertyId":       "RA-COMLEOT0041",
		"_id":              "64b7f0c2e1",
		"basicInformation": map[string]any{"title": "Legacy"},
		"metadata":         map[string]any{"createdBy": "old-admin", "createdAt": "2023-05-01T10:00:00Z", "status": "Sold"},
	}
	l, created, err := svc.Import(ctx, leaseOthers, doc)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "RA-COMLEOT0041", l.PropertyID)
	assert.EqualValues(t, 41, l.Seq)
	assert.Equal(t, "old-admin", l.Metadata.CreatedBy)
	assert.Equal(t, 2023, l.Metadata.CreatedAt.Year())
	assert.Equal(t, "Sold", l.Metadata.Status)
	assert.Equal(t, "Legacy", l.Metadata.PropertyName)

	_, created, err = svc.Import(ctx, leaseOthers, doc)
	require.NoError(t, err)
	assert.False(t, created, "second run skips")

	n, err := seqs.Next(ctx, leaseOthers.Prefix)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestImportOnlyService_RejectsCreate(t *testing.T) {
	ctx := context.Background()
	seqs := memory.NewSequences()
	svc := app.NewListingService(memory.New(), nil, seqs, nil, 3)

	l, created, err := svc.Import(ctx, leaseOthers, map[string]any{"propertyId": "RA-COMLEOT0005"})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "RA-COMLEOT0005", l.PropertyID)

	_, err = svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	assert.ErrorContains(t, err, "allocator")
}

func TestImport_TimestampIDDoesNotMoveSequence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store, memory.NewSequences(), nil)

	l, created, err := svc.Import(ctx, leaseOthers, map[string]any{"propertyId": "RA-COMLEOT87654321"})
	require.NoError(t, err)
	require.True(t, created)
	assert.Zero(t, l.Seq)

	next, err := svc.Create(ctx, leaseOthers, map[string]any{}, "u")
	require.NoError(t, err)
	assert.Equal(t, "RA-COMLEOT0001", next.PropertyID)
}

func TestImport_RejectsForeignPrefix(t *testing.T) {
	svc := newService(memory.New(), nil, nil)
	_, _, err := svc.Import(context.Background(), leaseOthers, map[string]any{"propertyId": "RA-RESREAP0001"})
	assert.ErrorIs(t, err, domain.ErrInvalidPropertyID)
}
