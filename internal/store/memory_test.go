package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplabs/faucet/internal/store"
)

func TestMemoryTokens_CaseInsensitiveLookup(t *testing.T) {
	ctx := context.Background()
	tokens := store.NewMemoryTokens()

	err := tokens.Put(ctx, store.TokenInfo{
		Address:  "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		Symbol:   "TST",
		Name:     "Test Token",
		Amount:   "1000000000000000000",
		Decimals: 18,
	})
	require.NoError(t, err)

	upper, ok, err := tokens.Get(ctx, "0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	require.NoError(t, err)
	require.True(t, ok)

	lower, ok, err := tokens.Get(ctx, "0xabcdef0123456789abcdef0123456789abcdef01")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, upper, lower)
	assert.Equal(t, "TST", lower.Symbol)
	// Stored key is canonicalized to lowercase.
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", lower.Address)
}

func TestMemoryTokens_Delete(t *testing.T) {
	ctx := context.Background()
	tokens := store.NewMemoryTokens()

	require.NoError(t, tokens.Put(ctx, store.TokenInfo{Address: "0x1111111111111111111111111111111111111111", Symbol: "A", Amount: "1"}))

	removed, err := tokens.Delete(ctx, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = tokens.Delete(ctx, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.False(t, removed, "second delete should report not found")

	list, err := tokens.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryHistory_NewestFirst(t *testing.T) {
	ctx := context.Background()
	history := store.NewMemoryHistory()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, history.Append(ctx, store.ClaimRecord{
			ID:           uuid.New(),
			Address:      "0x2222222222222222222222222222222222222222",
			TokenAddress: store.ZeroAddress,
			Amount:       "100",
			TxHash:       "0xabc",
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
		}))
	}

	claims, err := history.ListByAddress(ctx, "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	require.Len(t, claims, 3)
	assert.True(t, claims[0].Timestamp.After(claims[1].Timestamp))
	assert.True(t, claims[1].Timestamp.After(claims[2].Timestamp))
}

func TestMemoryHistory_AddressCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	history := store.NewMemoryHistory()

	require.NoError(t, history.Append(ctx, store.ClaimRecord{
		ID:           uuid.New(),
		Address:      "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		TokenAddress: store.ZeroAddress,
		Amount:       "100",
		TxHash:       "0xdef",
		Timestamp:    time.Now(),
	}))

	claims, err := history.ListByAddress(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestMemoryHistory_Stats(t *testing.T) {
	ctx := context.Background()
	history := store.NewMemoryHistory()

	addrA := "0x1111111111111111111111111111111111111111"
	addrB := "0x2222222222222222222222222222222222222222"
	token := "0x3333333333333333333333333333333333333333"

	for i, addr := range []string{addrA, addrA, addrB} {
		tokenAddr := store.ZeroAddress
		if i == 1 {
			tokenAddr = token
		}
		require.NoError(t, history.Append(ctx, store.ClaimRecord{
			ID:           uuid.New(),
			Address:      addr,
			TokenAddress: tokenAddr,
			Amount:       "1",
			TxHash:       "0x0",
			Timestamp:    time.Now(),
		}))
	}

	global, err := history.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, global.TotalClaims)
	assert.Equal(t, 2, global.UniqueAddresses)
	assert.Equal(t, 2, global.ClaimsByToken[store.ZeroAddress])
	assert.Equal(t, 1, global.ClaimsByToken[token])

	perAddr, err := history.Stats(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, 2, perAddr.TotalClaims)
	assert.Equal(t, 1, perAddr.UniqueAddresses)
}
