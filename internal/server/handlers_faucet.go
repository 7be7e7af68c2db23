package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/driplabs/faucet/internal/faucet"
	"github.com/driplabs/faucet/internal/store"
)

type claimRequest struct {
	Address string `json:"address"`
	// TokenAddress selects an ERC-20; empty or the zero address means
	// native ETH.
	TokenAddress string `json:"tokenAddress,omitempty"`
}

type claimResponse struct {
	Success   bool                `json:"success"`
	TxHash    string              `json:"txHash"`
	Token     faucet.TokenSummary `json:"token"`
	Recipient string              `json:"recipient"`
	Timestamp time.Time           `json:"timestamp"`
}

type historyResponse struct {
	Address string              `json:"address"`
	Claims  []store.ClaimRecord `json:"claims"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.respondError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	recipient := common.HexToAddress(req.Address)

	native := req.TokenAddress == "" || store.NormalizeAddress(req.TokenAddress) == store.ZeroAddress
	if !native && !common.IsHexAddress(req.TokenAddress) {
		s.respondError(w, http.StatusBadRequest, "Invalid token address")
		return
	}

	var result *faucet.ClaimResult
	var err error
	if native {
		result, err = s.cfg.Faucet.ClaimETH(r.Context(), recipient)
	} else {
		result, err = s.cfg.Faucet.ClaimToken(r.Context(), recipient, common.HexToAddress(req.TokenAddress))
	}
	if err != nil {
		s.respondClaimError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, claimResponse{
		Success:   true,
		TxHash:    result.TxHash,
		Token:     result.Token,
		Recipient: result.Recipient,
		Timestamp: result.Timestamp,
	})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.cfg.Tokens.List(r.Context())
	if err != nil {
		s.log.Error("failed to list tokens", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to list tokens")
		return
	}

	// Native ETH first, then the registry.
	out := make([]store.TokenInfo, 0, len(tokens)+1)
	out = append(out, store.TokenInfo{
		Address:  store.ZeroAddress,
		Symbol:   "ETH",
		Name:     "Ether",
		Amount:   s.cfg.ETHAmountWei.String(),
		Decimals: 18,
	})
	out = append(out, tokens...)

	s.respondJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		s.respondError(w, http.StatusBadRequest, "Invalid address")
		return
	}

	claims, err := s.cfg.History.ListByAddress(r.Context(), address)
	if err != nil {
		s.log.Error("failed to list claim history", "address", address, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if claims == nil {
		claims = []store.ClaimRecord{}
	}

	s.respondJSON(w, http.StatusOK, historyResponse{
		Address: store.NormalizeAddress(address),
		Claims:  claims,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address != "" && !common.IsHexAddress(address) {
		s.respondError(w, http.StatusBadRequest, "Invalid address")
		return
	}

	// Stats are display-only; a store failure degrades to empty counts
	// rather than failing the response.
	stats, err := s.cfg.History.Stats(r.Context(), address)
	if err != nil {
		s.log.Error("failed to gather stats", "error", err)
		stats = store.Stats{ClaimsByToken: map[string]int{}}
	}
	s.respondJSON(w, http.StatusOK, stats)
}
