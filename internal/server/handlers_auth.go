package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/driplabs/faucet/internal/auth"
)

type nonceRequest struct {
	Address string `json:"address"`
}

type nonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type verifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	IsAdmin bool   `json:"isAdmin"`
}

type meResponse struct {
	Address string `json:"address"`
	IsAdmin bool   `json:"isAdmin"`
}

func (s *Server) handleAuthNonce(w http.ResponseWriter, r *http.Request) {
	var req nonceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.respondError(w, http.StatusBadRequest, "Invalid address")
		return
	}

	nonce, message, err := s.cfg.Auth.IssueNonce(r.Context(), common.HexToAddress(req.Address))
	if err != nil {
		s.log.Error("failed to issue nonce", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to generate nonce")
		return
	}
	s.respondJSON(w, http.StatusOK, nonceResponse{Nonce: nonce, Message: message})
}

func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.respondError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	if req.Signature == "" {
		s.respondError(w, http.StatusBadRequest, "Missing signature")
		return
	}

	addr := common.HexToAddress(req.Address)
	token, isAdmin, err := s.cfg.Auth.Verify(r.Context(), addr, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNonceNotFound), errors.Is(err, auth.ErrNonceExpired):
			s.respondError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, auth.ErrBadSignature), errors.Is(err, auth.ErrInvalidSignature):
			s.respondError(w, http.StatusUnauthorized, "Invalid signature")
		default:
			s.log.Error("failed to verify signature", "error", err)
			s.respondError(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, verifyResponse{
		Token:   token,
		Address: addr.Hex(),
		IsAdmin: isAdmin,
	})
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}
	s.respondJSON(w, http.StatusOK, meResponse{
		Address: claims.Subject,
		IsAdmin: claims.Admin,
	})
}
