// Package chain wraps the JSON-RPC connection, signing key and faucet
// contract binding behind typed read and write calls.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/driplabs/faucet/internal/metrics"
)

// gasMarginPercent is the safety margin applied on top of the node's gas
// estimate before submitting a claim.
const gasMarginPercent = 20

// TokenConfig is the contract's per-token dispensing tuple.
type TokenConfig struct {
	Amount   *big.Int
	Cooldown uint64
	Active   bool
}

// Config holds the chain client construction parameters.
type Config struct {
	Logger          *slog.Logger
	RPCURL          string
	PrivateKey      string // hex encoded, no 0x prefix
	ContractAddress common.Address
	ChainID         int64 // 0 = fetch from the node
	ConfirmTimeout  time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if cfg.PrivateKey == "" {
		return errors.New("private key is required")
	}
	if cfg.ContractAddress == (common.Address{}) {
		return errors.New("contract address is required")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 90 * time.Second
	}
	return nil
}

// Client is the live faucet contract client. Constructed once at startup;
// claim traffic cannot be served without it.
type Client struct {
	log      *slog.Logger
	cfg      Config
	eth      *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	abi      abi.ABI
	erc20    abi.ABI
	contract *bind.BoundContract
}

// New dials the RPC endpoint and binds the faucet contract.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid faucet private key: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = eth.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain id: %w", err)
		}
	}

	parsed, err := abi.JSON(strings.NewReader(faucetABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse faucet abi: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	c := &Client{
		log:      cfg.Logger,
		cfg:      cfg,
		eth:      eth,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		abi:      parsed,
		erc20:    erc20,
		contract: bind.NewBoundContract(cfg.ContractAddress, parsed, eth, eth, eth),
	}

	c.log.Info("chain client initialized",
		"contract", cfg.ContractAddress.Hex(),
		"signer", c.from.Hex(),
		"chainID", chainID.String())
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Signer returns the faucet's funding address.
func (c *Client) Signer() common.Address {
	return c.from
}

// IsBlacklisted reports whether the contract bars the address from claiming.
func (c *Client) IsBlacklisted(ctx context.Context, addr common.Address) (bool, error) {
	var out []any
	err := c.call(ctx, &out, "isBlacklisted", addr)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// LastETHClaim returns the unix timestamp of the address's last ETH claim,
// zero when it never claimed.
func (c *Client) LastETHClaim(ctx context.Context, addr common.Address) (uint64, error) {
	var out []any
	if err := c.call(ctx, &out, "lastEthClaim", addr); err != nil {
		return 0, err
	}
	return (*abi.ConvertType(out[0], new(big.Int)).(*big.Int)).Uint64(), nil
}

// LastTokenClaim returns the unix timestamp of the address's last claim for
// the given token, zero when it never claimed.
func (c *Client) LastTokenClaim(ctx context.Context, addr, token common.Address) (uint64, error) {
	var out []any
	if err := c.call(ctx, &out, "lastTokenClaim", addr, token); err != nil {
		return 0, err
	}
	return (*abi.ConvertType(out[0], new(big.Int)).(*big.Int)).Uint64(), nil
}

// TokenConfig returns the contract's dispensing config for a token.
func (c *Client) TokenConfig(ctx context.Context, token common.Address) (TokenConfig, error) {
	var out []any
	if err := c.call(ctx, &out, "tokenConfig", token); err != nil {
		return TokenConfig{}, err
	}
	return TokenConfig{
		Amount:   abi.ConvertType(out[0], new(big.Int)).(*big.Int),
		Cooldown: (*abi.ConvertType(out[1], new(big.Int)).(*big.Int)).Uint64(),
		Active:   *abi.ConvertType(out[2], new(bool)).(*bool),
	}, nil
}

// ETHAmount returns the contract's configured ETH payout in wei.
func (c *Client) ETHAmount(ctx context.Context) (*big.Int, error) {
	var out []any
	if err := c.call(ctx, &out, "ethAmount"); err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// ClaimETH submits an ETH claim for the recipient and waits for one
// confirmation.
func (c *Client) ClaimETH(ctx context.Context, recipient common.Address) (common.Hash, error) {
	return c.submit(ctx, "claimEth", recipient)
}

// ClaimToken submits a token claim for the recipient and waits for one
// confirmation.
func (c *Client) ClaimToken(ctx context.Context, recipient, token common.Address) (common.Hash, error) {
	return c.submit(ctx, "claimToken", recipient, token)
}

// ERC20Metadata reads symbol, name and decimals from a token contract, used
// to prefill registry entries when the admin omits them.
func (c *Client) ERC20Metadata(ctx context.Context, token common.Address) (symbol, name string, decimals uint8, err error) {
	bound := bind.NewBoundContract(token, c.erc20, c.eth, c.eth, c.eth)
	opts := &bind.CallOpts{Context: ctx}

	var out []any
	if err = bound.Call(opts, &out, "symbol"); err != nil {
		return "", "", 0, fmt.Errorf("failed to read token symbol: %w", err)
	}
	symbol = *abi.ConvertType(out[0], new(string)).(*string)

	out = nil
	if err = bound.Call(opts, &out, "name"); err != nil {
		return "", "", 0, fmt.Errorf("failed to read token name: %w", err)
	}
	name = *abi.ConvertType(out[0], new(string)).(*string)

	out = nil
	if err = bound.Call(opts, &out, "decimals"); err != nil {
		return "", "", 0, fmt.Errorf("failed to read token decimals: %w", err)
	}
	decimals = *abi.ConvertType(out[0], new(uint8)).(*uint8)
	return symbol, name, decimals, nil
}

// Ping checks RPC connectivity and contract reachability without touching
// state. Used by the admin test-connection endpoint.
func (c *Client) Ping(ctx context.Context) (blockNumber uint64, err error) {
	blockNumber, err = c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("rpc endpoint unreachable: %w", err)
	}
	if _, err := c.ETHAmount(ctx); err != nil {
		return 0, fmt.Errorf("faucet contract unreachable: %w", err)
	}
	return blockNumber, nil
}

func (c *Client) call(ctx context.Context, out *[]any, method string, args ...any) error {
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...)
	metrics.RecordChainCall(method, err)
	if err != nil {
		return fmt.Errorf("contract read %s failed: %w", method, err)
	}
	return nil
}

// submit runs the full write path: estimate gas with a safety margin, send
// the transaction, then wait for one confirmation. Submission and
// confirmation failures are distinct so callers can tell "never made it to
// the chain" from "on chain but not confirmed".
func (c *Client) submit(ctx context.Context, method string, args ...any) (common.Hash, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.cfg.ContractAddress,
		Data: data,
	})
	if err != nil {
		metrics.RecordChainCall(method, err)
		return common.Hash{}, &TxError{Stage: StageSubmit, Method: method, Reason: revertReason(err), Err: err}
	}
	gas += gas * gasMarginPercent / 100

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = gas

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		metrics.RecordChainCall(method, err)
		return common.Hash{}, &TxError{Stage: StageSubmit, Method: method, Reason: revertReason(err), Err: err}
	}
	metrics.RecordChainCall(method, nil)

	c.log.Info("claim transaction submitted", "method", method, "tx", tx.Hash().Hex(), "gasLimit", gas)

	// A submitted claim is irreversible regardless of the HTTP outcome, so
	// the confirmation wait must not die with the request context.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		return tx.Hash(), &TxError{Stage: StageConfirm, Method: method, Reason: "confirmation timed out", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), &TxError{Stage: StageConfirm, Method: method, Reason: "transaction reverted", Err: nil}
	}

	c.log.Info("claim transaction confirmed", "method", method, "tx", tx.Hash().Hex(), "block", receipt.BlockNumber.Uint64())
	return tx.Hash(), nil
}

// revertReason pulls the revert reason out of a node error when the client
// exposes one, falling back to the raw error message.
func revertReason(err error) string {
	type dataError interface {
		ErrorData() any
	}
	var de dataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok && s != "" {
			return s
		}
	}
	return err.Error()
}
