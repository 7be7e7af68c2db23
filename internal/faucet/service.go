// Package faucet implements claim eligibility and execution. The contract is
// the single source of truth for cooldowns and the blacklist; the local claim
// history is display-only and never gates a claim.
package faucet

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/driplabs/faucet/internal/chain"
	"github.com/driplabs/faucet/internal/metrics"
	"github.com/driplabs/faucet/internal/store"
)

// ChainClient is the faucet contract surface the service depends on.
// *chain.Client satisfies it; tests inject fakes.
type ChainClient interface {
	IsBlacklisted(ctx context.Context, addr common.Address) (bool, error)
	LastETHClaim(ctx context.Context, addr common.Address) (uint64, error)
	LastTokenClaim(ctx context.Context, addr, token common.Address) (uint64, error)
	TokenConfig(ctx context.Context, token common.Address) (chain.TokenConfig, error)
	ETHAmount(ctx context.Context) (*big.Int, error)
	ClaimETH(ctx context.Context, recipient common.Address) (common.Hash, error)
	ClaimToken(ctx context.Context, recipient, token common.Address) (common.Hash, error)
}

// Eligibility is the outcome of a cooldown check. RetryAfter is only set when
// CanClaim is false due to an active cooldown.
type Eligibility struct {
	CanClaim   bool
	RetryAfter time.Duration
}

// TokenSummary describes what a claim dispensed.
type TokenSummary struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
}

// ClaimResult is a confirmed claim.
type ClaimResult struct {
	TxHash    string       `json:"txHash"`
	Token     TokenSummary `json:"token"`
	Recipient string       `json:"recipient"`
	Timestamp time.Time    `json:"timestamp"`
}

// Config holds the service dependencies.
type Config struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Chain   ChainClient
	History store.HistoryStore
	Tokens  store.TokenStore

	// ETHCooldown is the fixed cooldown applied to native claims; token
	// cooldowns come from the contract's per-token config.
	ETHCooldown time.Duration
	// ETHAmountWei is the display fallback when the contract amount read
	// fails mid-claim.
	ETHAmountWei *big.Int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Chain == nil {
		return errors.New("chain client is required")
	}
	if cfg.History == nil {
		return errors.New("history store is required")
	}
	if cfg.Tokens == nil {
		return errors.New("token store is required")
	}
	if cfg.ETHCooldown <= 0 {
		return errors.New("eth cooldown must be positive")
	}
	if cfg.ETHAmountWei == nil || cfg.ETHAmountWei.Sign() <= 0 {
		return errors.New("eth amount must be positive")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Service checks eligibility and executes claims.
type Service struct {
	log    *slog.Logger
	cfg    Config
	clock  clockwork.Clock
	paused atomic.Bool
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{log: cfg.Logger, cfg: cfg, clock: cfg.Clock}, nil
}

// Pause stops claim processing until Unpause. Reads remain available.
func (s *Service) Pause() {
	s.paused.Store(true)
	metrics.SetPaused(true)
	s.log.Info("faucet paused")
}

// Unpause resumes claim processing.
func (s *Service) Unpause() {
	s.paused.Store(false)
	metrics.SetPaused(false)
	s.log.Info("faucet unpaused")
}

// Paused reports whether claim processing is paused.
func (s *Service) Paused() bool {
	return s.paused.Load()
}

// CheckETH derives ETH claim eligibility from the contract's current state.
// Blacklisted addresses get ErrBlacklisted, never a cooldown hint.
func (s *Service) CheckETH(ctx context.Context, addr common.Address) (Eligibility, error) {
	blacklisted, err := s.cfg.Chain.IsBlacklisted(ctx, addr)
	if err != nil {
		return Eligibility{}, err
	}
	if blacklisted {
		return Eligibility{}, ErrBlacklisted
	}

	last, err := s.cfg.Chain.LastETHClaim(ctx, addr)
	if err != nil {
		return Eligibility{}, err
	}
	return s.eligibility(last, s.cfg.ETHCooldown), nil
}

// CheckToken derives token claim eligibility. The token must be registered
// locally and active on the contract.
func (s *Service) CheckToken(ctx context.Context, addr, token common.Address) (Eligibility, error) {
	elig, _, err := s.checkToken(ctx, addr, token)
	return elig, err
}

// checkToken also returns the contract's token config so the claim path does
// not read it twice.
func (s *Service) checkToken(ctx context.Context, addr, token common.Address) (Eligibility, chain.TokenConfig, error) {
	if _, ok, err := s.cfg.Tokens.Get(ctx, token.Hex()); err != nil {
		return Eligibility{}, chain.TokenConfig{}, err
	} else if !ok {
		return Eligibility{}, chain.TokenConfig{}, ErrTokenNotSupported
	}

	blacklisted, err := s.cfg.Chain.IsBlacklisted(ctx, addr)
	if err != nil {
		return Eligibility{}, chain.TokenConfig{}, err
	}
	if blacklisted {
		return Eligibility{}, chain.TokenConfig{}, ErrBlacklisted
	}

	tokenCfg, err := s.cfg.Chain.TokenConfig(ctx, token)
	if err != nil {
		return Eligibility{}, chain.TokenConfig{}, err
	}
	if !tokenCfg.Active {
		return Eligibility{}, chain.TokenConfig{}, ErrTokenInactive
	}

	last, err := s.cfg.Chain.LastTokenClaim(ctx, addr, token)
	if err != nil {
		return Eligibility{}, chain.TokenConfig{}, err
	}
	return s.eligibility(last, time.Duration(tokenCfg.Cooldown)*time.Second), tokenCfg, nil
}

// eligibility compares the contract's last-claim timestamp against the
// cooldown. A zero timestamp means the address never claimed.
func (s *Service) eligibility(lastClaim uint64, cooldown time.Duration) Eligibility {
	if lastClaim == 0 {
		return Eligibility{CanClaim: true}
	}
	elapsed := s.clock.Now().Sub(time.Unix(int64(lastClaim), 0))
	if elapsed >= cooldown {
		return Eligibility{CanClaim: true}
	}
	return Eligibility{CanClaim: false, RetryAfter: cooldown - elapsed}
}

// ClaimETH re-checks eligibility, submits the claim transaction and records
// it after confirmation.
func (s *Service) ClaimETH(ctx context.Context, recipient common.Address) (*ClaimResult, error) {
	start := s.clock.Now()
	result, err := s.claimETH(ctx, recipient)
	metrics.RecordClaim("eth", claimStatus(err), s.clock.Since(start))
	return result, err
}

func (s *Service) claimETH(ctx context.Context, recipient common.Address) (*ClaimResult, error) {
	if s.Paused() {
		return nil, ErrFaucetPaused
	}

	elig, err := s.CheckETH(ctx, recipient)
	if err != nil {
		return nil, err
	}
	if !elig.CanClaim {
		return nil, &CooldownError{RetryAfter: elig.RetryAfter}
	}

	amount := s.ethAmount(ctx)

	txHash, err := s.cfg.Chain.ClaimETH(ctx, recipient)
	if err != nil {
		return nil, err
	}

	return s.record(ctx, recipient, store.ZeroAddress, "ETH", amount, txHash), nil
}

// ClaimToken is the token counterpart of ClaimETH.
func (s *Service) ClaimToken(ctx context.Context, recipient, token common.Address) (*ClaimResult, error) {
	start := s.clock.Now()
	result, err := s.claimToken(ctx, recipient, token)
	metrics.RecordClaim("token", claimStatus(err), s.clock.Since(start))
	return result, err
}

func (s *Service) claimToken(ctx context.Context, recipient, token common.Address) (*ClaimResult, error) {
	if s.Paused() {
		return nil, ErrFaucetPaused
	}

	elig, tokenCfg, err := s.checkToken(ctx, recipient, token)
	if err != nil {
		return nil, err
	}
	if !elig.CanClaim {
		return nil, &CooldownError{RetryAfter: elig.RetryAfter}
	}

	info, _, err := s.cfg.Tokens.Get(ctx, token.Hex())
	if err != nil {
		return nil, err
	}

	// The contract amount is authoritative; the registry amount is the
	// display fallback.
	amount := info.Amount
	if tokenCfg.Amount != nil {
		amount = tokenCfg.Amount.String()
	}

	txHash, err := s.cfg.Chain.ClaimToken(ctx, recipient, token)
	if err != nil {
		return nil, err
	}

	return s.record(ctx, recipient, store.NormalizeAddress(token.Hex()), info.Symbol, amount, txHash), nil
}

// record appends the confirmed claim to the history. The append happens only
// after confirmation and its failure does not fail the claim — the tokens
// are already dispensed.
func (s *Service) record(ctx context.Context, recipient common.Address, tokenAddr, symbol, amount string, txHash common.Hash) *ClaimResult {
	now := s.clock.Now()
	rec := store.ClaimRecord{
		ID:           uuid.New(),
		Address:      store.NormalizeAddress(recipient.Hex()),
		TokenAddress: tokenAddr,
		Amount:       amount,
		TxHash:       txHash.Hex(),
		Timestamp:    now,
	}

	// The tokens are already on chain; a client that hung up during the
	// confirmation wait must not cancel the append.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.cfg.History.Append(appendCtx, rec); err != nil {
		s.log.Error("failed to record claim", "tx", txHash.Hex(), "error", err)
	}

	return &ClaimResult{
		TxHash:    txHash.Hex(),
		Token:     TokenSummary{Address: tokenAddr, Symbol: symbol, Amount: amount},
		Recipient: rec.Address,
		Timestamp: now,
	}
}

func (s *Service) ethAmount(ctx context.Context) string {
	if amount, err := s.cfg.Chain.ETHAmount(ctx); err == nil && amount != nil && amount.Sign() > 0 {
		return amount.String()
	}
	return s.cfg.ETHAmountWei.String()
}

func claimStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrBlacklisted):
		return "blacklisted"
	case isCooldown(err):
		return "cooldown"
	default:
		return "failed"
	}
}

func isCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}
