package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
)

func newAsset(mint string, createdAt time.Time) *domain.Asset {
	return &domain.Asset{
		ID:                  uuid.New(),
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
		Name:                "Token " + mint,
		Ticker:              "T" + mint,
		ContractAddress:     mint,
		Status:              domain.StatusNewlyLaunched,
		MarketCap:           ptr(int64(0)),
		URI:                 "https://example.com/" + mint + ".json",
		BondingCurveAddress: "curve-" + mint,
		CreatorAddress:      "creator-" + mint,
	}
}

func TestAssetStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssetStore(pool)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	a := newAsset("AAA", created)
	require.NoError(t, store.Insert(ctx, a))

	got, err := store.GetByContract(ctx, "AAA")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "TAAA", got.Ticker)
	assert.Equal(t, domain.StatusNewlyLaunched, got.Status)
	require.NotNil(t, got.MarketCap)
	assert.Equal(t, int64(0), *got.MarketCap)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, "creator-AAA", got.CreatorAddress)

	_, err = store.GetByContract(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssetStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newAsset("AAA", time.Now().UTC())))
	err := store.Insert(ctx, newAsset("AAA", time.Now().UTC()))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	assert.ErrorIs(t, store.Insert(ctx, &domain.Asset{}), storage.ErrInvalidInput)
}

func TestAssetStore_GetAllNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssetStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, newAsset("OLD", base)))
	require.NoError(t, store.Insert(ctx, newAsset("NEW", base.Add(time.Hour))))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "NEW", all[0].ContractAddress)
	assert.Equal(t, "OLD", all[1].ContractAddress)
}

func TestAssetStore_SetStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssetStore(pool)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newAsset("AAA", time.Now().UTC())))

	require.NoError(t, store.SetStatus(ctx, "AAA", domain.StatusGraduated))
	got, err := store.GetByContract(ctx, "AAA")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGraduated, got.Status)

	assert.ErrorIs(t, store.SetStatus(ctx, "nope", domain.StatusGraduated), storage.ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, "AAA", "bogus"), storage.ErrInvalidInput)
}

func TestAssetStore_CurveStatesRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssetStore(pool)
	ctx := context.Background()
	for _, m := range []string{"BBB", "AAA", "CCC"} {
		require.NoError(t, store.Insert(ctx, newAsset(m, time.Now().UTC())))
	}

	n, err := store.UpdateCurveStates(ctx, []domain.CurveState{
		{ContractAddress: "AAA", BondingCurvePercentage: 40, MarketCap: ptr(int64(30_000))},
		{ContractAddress: "BBB", BondingCurvePercentage: 100, MarketCap: ptr(int64(70_000)), Graduated: true},
		{ContractAddress: "ZZZ", BondingCurvePercentage: 5, MarketCap: ptr(int64(1))},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "unknown mint skipped")

	states, err := store.GetCurveStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, "AAA", states[0].ContractAddress)
	assert.Equal(t, 40, states[0].BondingCurvePercentage)
	assert.Equal(t, int64(30_000), *states[0].MarketCap)
	assert.False(t, states[0].Graduated)
	assert.True(t, states[1].Graduated)
	assert.Equal(t, "curve-CCC", states[2].BondingCurveAddress)

	b, err := store.GetByContract(ctx, "BBB")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGraduated, b.Status)

	// a second identical flush rewrites nothing
	n, err = store.UpdateCurveStates(ctx, []domain.CurveState{
		{ContractAddress: "AAA", BondingCurvePercentage: 40, MarketCap: ptr(int64(30_000))},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAssetStore_UpdateCurveStatesEmpty(t *testing.T) {
	store := NewAssetStore(nil)
	n, err := store.UpdateCurveStates(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
