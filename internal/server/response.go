package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/driplabs/faucet/internal/chain"
	"github.com/driplabs/faucet/internal/faucet"
)

type errorResponse struct {
	Error string `json:"error"`
}

type cooldownResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"` // seconds until the next claim is allowed
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondClaimError translates the faucet/chain error taxonomy to HTTP.
// Nothing from the blockchain layer leaks through untranslated.
func (s *Server) respondClaimError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldownErr *faucet.CooldownError
	var txErr *chain.TxError

	switch {
	case errors.As(err, &cooldownErr):
		retry := cooldownErr.RetryAfterSeconds()
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
		s.respondJSON(w, http.StatusTooManyRequests, cooldownResponse{
			Error:      "Cooldown active",
			RetryAfter: retry,
		})
	case errors.Is(err, faucet.ErrBlacklisted):
		s.respondError(w, http.StatusBadRequest, "Address is blacklisted")
	case errors.Is(err, faucet.ErrTokenNotSupported):
		s.respondError(w, http.StatusBadRequest, "Token not supported")
	case errors.Is(err, faucet.ErrTokenInactive):
		s.respondError(w, http.StatusBadRequest, "Token is not active")
	case errors.Is(err, faucet.ErrFaucetPaused):
		s.respondError(w, http.StatusServiceUnavailable, "Faucet is paused")
	case errors.As(err, &txErr):
		// Pass the revert reason through; a not-confirmed transaction is a
		// distinct condition, never reported as success.
		if txErr.NotConfirmed() {
			s.respondError(w, http.StatusBadRequest, "Transaction not confirmed: "+txErr.Reason)
			return
		}
		s.respondError(w, http.StatusBadRequest, "Transaction failed: "+txErr.Reason)
	default:
		s.log.Error("claim failed", "path", r.URL.Path, "error", err)
		if s.cfg.Production {
			s.respondError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "Internal error: "+err.Error())
	}
}
