package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplabs/faucet/internal/logger"
	"github.com/driplabs/faucet/internal/store"
	"github.com/driplabs/faucet/internal/testutil"
)

func newPostgresStore(t *testing.T) *store.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	log := logger.NewNop()

	db, err := testutil.NewPostgresDB(ctx, log)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	pg, err := store.NewPostgres(ctx, log, db.ConnStr())
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	return pg
}

func TestPostgresHistory(t *testing.T) {
	pg := newPostgresStore(t)
	history := pg.History()
	ctx := context.Background()

	addr := "0x1111111111111111111111111111111111111111"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, history.Append(ctx, store.ClaimRecord{
			ID:           uuid.New(),
			Address:      addr,
			TokenAddress: store.ZeroAddress,
			Amount:       "100",
			TxHash:       "0xabc",
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, history.Append(ctx, store.ClaimRecord{
		ID:           uuid.New(),
		Address:      "0x2222222222222222222222222222222222222222",
		TokenAddress: "0x3333333333333333333333333333333333333333",
		Amount:       "5",
		TxHash:       "0xdef",
		Timestamp:    base,
	}))

	claims, err := history.ListByAddress(ctx, addr)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	assert.True(t, claims[0].Timestamp.After(claims[1].Timestamp), "newest first")

	all, err := history.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	stats, err := history.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalClaims)
	assert.Equal(t, 2, stats.UniqueAddresses)
	assert.Equal(t, 3, stats.ClaimsByToken[store.ZeroAddress])

	perAddr, err := history.Stats(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, 3, perAddr.TotalClaims)
}

func TestPostgresTokens(t *testing.T) {
	pg := newPostgresStore(t)
	tokens := pg.Tokens()
	ctx := context.Background()

	info := store.TokenInfo{
		Address:  "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa",
		Symbol:   "TST",
		Name:     "Test Token",
		Amount:   "1000",
		Decimals: 6,
	}
	require.NoError(t, tokens.Put(ctx, info))

	got, ok, err := tokens.Get(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "TST", got.Symbol)
	assert.Equal(t, uint8(6), got.Decimals)

	// Put on an existing address upserts.
	info.Amount = "2000"
	require.NoError(t, tokens.Put(ctx, info))
	got, ok, err = tokens.Get(ctx, info.Address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2000", got.Amount)

	list, err := tokens.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := tokens.Delete(ctx, info.Address)
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err = tokens.Get(ctx, info.Address)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err = tokens.Delete(ctx, info.Address)
	require.NoError(t, err)
	assert.False(t, removed)
}
