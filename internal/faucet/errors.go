package faucet

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrBlacklisted means the contract bars the address from claiming.
	// Blacklisted addresses never get a remaining-time hint.
	ErrBlacklisted = errors.New("address is blacklisted")

	// ErrTokenNotSupported means the token is not in the local registry.
	ErrTokenNotSupported = errors.New("token not supported")

	// ErrTokenInactive means the contract has the token disabled.
	ErrTokenInactive = errors.New("token is not active")

	// ErrFaucetPaused means an admin paused claim processing.
	ErrFaucetPaused = errors.New("faucet is paused")
)

// CooldownError reports an active cooldown with the time left until the next
// claim is allowed.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, retry in %s", e.RetryAfter)
}

// RetryAfterSeconds returns the remaining cooldown rounded up to whole
// seconds, never less than 1.
func (e *CooldownError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
