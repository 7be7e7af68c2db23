// Package auth implements the sign-a-nonce wallet handshake and JWT session
// tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const (
	nonceTTL      = 5 * time.Minute
	tokenLifetime = 24 * time.Hour

	// messageTemplate is what wallets sign. The nonce is an auth nonce, not
	// a transaction nonce.
	messageTemplate = "Sign this message to authenticate with the faucet.\n\nNonce: %s"
)

var (
	ErrNonceNotFound    = errors.New("no pending nonce for address, request one first")
	ErrNonceExpired     = errors.New("nonce expired, request a new one")
	ErrBadSignature     = errors.New("signature does not match address")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrInvalidSignature = errors.New("malformed signature")
)

// Claims are the JWT session claims. Subject is the lowercased wallet
// address.
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// Config holds the auth service parameters.
type Config struct {
	Logger       *slog.Logger
	Clock        clockwork.Clock
	JWTSecret    string
	AdminAddress common.Address
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.AdminAddress == (common.Address{}) {
		return errors.New("admin address is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type pendingNonce struct {
	nonce     string
	expiresAt time.Time
}

// Service issues nonces and session tokens. Nonces are one-time use and live
// in memory only; a restart invalidates pending handshakes, which is fine
// because clients just request a new nonce.
type Service struct {
	log   *slog.Logger
	cfg   Config
	clock clockwork.Clock

	mu     sync.Mutex
	nonces map[string]pendingNonce
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		log:    cfg.Logger,
		cfg:    cfg,
		clock:  cfg.Clock,
		nonces: make(map[string]pendingNonce),
	}, nil
}

// IssueNonce generates a fresh nonce for the address and returns the full
// message the wallet must sign. A new request replaces any pending nonce.
func (s *Service) IssueNonce(ctx context.Context, addr common.Address) (nonce, message string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = hex.EncodeToString(buf)

	key := strings.ToLower(addr.Hex())
	now := s.clock.Now()

	s.mu.Lock()
	// Opportunistic cleanup of expired entries.
	for k, p := range s.nonces {
		if now.After(p.expiresAt) {
			delete(s.nonces, k)
		}
	}
	s.nonces[key] = pendingNonce{nonce: nonce, expiresAt: now.Add(nonceTTL)}
	s.mu.Unlock()

	return nonce, fmt.Sprintf(messageTemplate, nonce), nil
}

// Verify checks the EIP-191 personal-sign signature over the address's
// pending nonce message and issues a session token. The nonce is consumed
// whether or not verification succeeds.
func (s *Service) Verify(ctx context.Context, addr common.Address, signature string) (token string, admin bool, err error) {
	key := strings.ToLower(addr.Hex())

	s.mu.Lock()
	pending, ok := s.nonces[key]
	delete(s.nonces, key)
	s.mu.Unlock()

	if !ok {
		return "", false, ErrNonceNotFound
	}
	if s.clock.Now().After(pending.expiresAt) {
		return "", false, ErrNonceExpired
	}

	message := fmt.Sprintf(messageTemplate, pending.nonce)
	recovered, err := recoverSigner(message, signature)
	if err != nil {
		return "", false, err
	}
	if recovered != addr {
		s.log.Warn("signature address mismatch", "claimed", addr.Hex(), "recovered", recovered.Hex())
		return "", false, ErrBadSignature
	}

	admin = addr == s.cfg.AdminAddress
	token, err = s.issueToken(key, admin)
	if err != nil {
		return "", false, err
	}
	return token, admin, nil
}

// recoverSigner recovers the address that personal-signed the message.
func recoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	// Wallets return the legacy recovery id offset by 27.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (s *Service) issueToken(subject string, admin bool) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
