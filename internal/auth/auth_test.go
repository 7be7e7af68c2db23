package auth_test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplabs/faucet/internal/auth"
	"github.com/driplabs/faucet/internal/logger"
)

var adminAddr = common.HexToAddress("0x00000000000000000000000000000000000000AD")

func newService(t *testing.T, clock clockwork.Clock) *auth.Service {
	t.Helper()
	svc, err := auth.New(auth.Config{
		Logger:       logger.NewNop(),
		Clock:        clock,
		JWTSecret:    "test-secret",
		AdminAddress: adminAddr,
	})
	require.NoError(t, err)
	return svc
}

func newWallet(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// personalSign signs the message the way wallets do: EIP-191 prefix and the
// recovery id offset by 27.
func personalSign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func TestVerify_RoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, clock)
	key, addr := newWallet(t)
	ctx := context.Background()

	nonce, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	assert.Contains(t, message, nonce)

	token, admin, err := svc.Verify(ctx, addr, personalSign(t, key, message))
	require.NoError(t, err)
	assert.False(t, admin)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, addr, common.HexToAddress(claims.Subject))
	assert.False(t, claims.Admin)
}

func TestVerify_AdminFlag(t *testing.T) {
	ctx := context.Background()

	// The admin address is the generated wallet itself.
	key, addr := newWallet(t)
	svc, err := auth.New(auth.Config{
		Logger:       logger.NewNop(),
		Clock:        clockwork.NewFakeClock(),
		JWTSecret:    "test-secret",
		AdminAddress: addr,
	})
	require.NoError(t, err)

	_, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)

	token, admin, err := svc.Verify(ctx, addr, personalSign(t, key, message))
	require.NoError(t, err)
	assert.True(t, admin)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestVerify_WrongSigner(t *testing.T) {
	svc := newService(t, clockwork.NewFakeClock())
	ctx := context.Background()

	_, addr := newWallet(t)
	otherKey, _ := newWallet(t)

	_, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)

	_, _, err = svc.Verify(ctx, addr, personalSign(t, otherKey, message))
	assert.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestVerify_NonceIsOneTimeUse(t *testing.T) {
	svc := newService(t, clockwork.NewFakeClock())
	key, addr := newWallet(t)
	ctx := context.Background()

	_, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	sig := personalSign(t, key, message)

	_, _, err = svc.Verify(ctx, addr, sig)
	require.NoError(t, err)

	_, _, err = svc.Verify(ctx, addr, sig)
	assert.ErrorIs(t, err, auth.ErrNonceNotFound)
}

func TestVerify_FailedAttemptConsumesNonce(t *testing.T) {
	svc := newService(t, clockwork.NewFakeClock())
	key, addr := newWallet(t)
	ctx := context.Background()

	_, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)

	_, _, err = svc.Verify(ctx, addr, "0xdeadbeef")
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)

	// A retry with the correct signature still fails, the nonce is gone.
	_, _, err = svc.Verify(ctx, addr, personalSign(t, key, message))
	assert.ErrorIs(t, err, auth.ErrNonceNotFound)
}

func TestVerify_ExpiredNonce(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, clock)
	key, addr := newWallet(t)
	ctx := context.Background()

	_, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	_, _, err = svc.Verify(ctx, addr, personalSign(t, key, message))
	assert.ErrorIs(t, err, auth.ErrNonceExpired)
}

func TestVerify_NoPendingNonce(t *testing.T) {
	svc := newService(t, clockwork.NewFakeClock())
	_, addr := newWallet(t)

	_, _, err := svc.Verify(context.Background(), addr, "0x00")
	assert.ErrorIs(t, err, auth.ErrNonceNotFound)
}

func TestIssueNonce_ReplacesPending(t *testing.T) {
	svc := newService(t, clockwork.NewFakeClock())
	key, addr := newWallet(t)
	ctx := context.Background()

	_, firstMessage, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	_, _, err = svc.IssueNonce(ctx, addr)
	require.NoError(t, err)

	// The first nonce is no longer valid once a second one was issued.
	_, _, err = svc.Verify(ctx, addr, personalSign(t, key, firstMessage))
	assert.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestParseToken_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, clock)
	key, addr := newWallet(t)
	ctx := context.Background()

	_, message, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	token, _, err := svc.Verify(ctx, addr, personalSign(t, key, message))
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	svc := newService(t, clockwork.NewFakeClock())
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ParseToken(tok)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, fmt.Sprintf("token %q", tok))
	}
}
