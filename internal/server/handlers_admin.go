package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/driplabs/faucet/internal/store"
)

type adminTokenRequest struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	// Pointer so an explicit 0 is distinguishable from an absent field.
	Decimals *uint8 `json:"decimals"`
}

type adminStatusResponse struct {
	Paused        bool   `json:"paused"`
	SignerAddress string `json:"signerAddress"`
	TokenCount    int    `json:"tokenCount"`
	TotalClaims   int    `json:"totalClaims"`
}

type testConnectionResponse struct {
	Connected     bool   `json:"connected"`
	BlockNumber   uint64 `json:"blockNumber"`
	SignerAddress string `json:"signerAddress"`
}

// handleAdminAddToken registers a token. Symbol, name and decimals are read
// from the token contract when omitted.
func (s *Server) handleAdminAddToken(w http.ResponseWriter, r *http.Request) {
	var req adminTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.respondError(w, http.StatusBadRequest, "Invalid token address")
		return
	}
	if req.Amount == "" {
		s.respondError(w, http.StatusBadRequest, "Missing amount")
		return
	}

	if req.Symbol == "" || req.Name == "" {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		symbol, name, decimals, err := s.cfg.Chain.ERC20Metadata(ctx, common.HexToAddress(req.Address))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Token metadata unavailable, provide symbol and name")
			return
		}
		if req.Symbol == "" {
			req.Symbol = symbol
		}
		if req.Name == "" {
			req.Name = name
		}
		if req.Decimals == nil {
			req.Decimals = &decimals
		}
	}
	if req.Decimals == nil {
		fallback := uint8(18)
		req.Decimals = &fallback
	}

	info := store.TokenInfo{
		Address:  store.NormalizeAddress(req.Address),
		Symbol:   req.Symbol,
		Name:     req.Name,
		Amount:   req.Amount,
		Decimals: *req.Decimals,
	}
	if err := s.cfg.Tokens.Put(r.Context(), info); err != nil {
		s.log.Error("failed to add token", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to add token")
		return
	}

	s.log.Info("token registered", "address", info.Address, "symbol", info.Symbol)
	s.respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleAdminUpdateToken(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		s.respondError(w, http.StatusBadRequest, "Invalid token address")
		return
	}

	existing, ok, err := s.cfg.Tokens.Get(r.Context(), address)
	if err != nil {
		s.log.Error("failed to load token", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load token")
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "Token not found")
		return
	}

	var req adminTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol != "" {
		existing.Symbol = req.Symbol
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Amount != "" {
		existing.Amount = req.Amount
	}
	if req.Decimals != nil {
		existing.Decimals = *req.Decimals
	}

	if err := s.cfg.Tokens.Put(r.Context(), existing); err != nil {
		s.log.Error("failed to update token", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to update token")
		return
	}
	s.respondJSON(w, http.StatusOK, existing)
}

func (s *Server) handleAdminRemoveToken(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		s.respondError(w, http.StatusBadRequest, "Invalid token address")
		return
	}

	removed, err := s.cfg.Tokens.Delete(r.Context(), address)
	if err != nil {
		s.log.Error("failed to remove token", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to remove token")
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "Token not found")
		return
	}

	s.log.Info("token removed", "address", store.NormalizeAddress(address))
	s.respondJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleAdminPause(w http.ResponseWriter, r *http.Request) {
	s.cfg.Faucet.Pause()
	s.respondJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleAdminUnpause(w http.ResponseWriter, r *http.Request) {
	s.cfg.Faucet.Unpause()
	s.respondJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.cfg.Tokens.List(r.Context())
	if err != nil {
		s.log.Error("failed to list tokens for status", "error", err)
	}
	stats, err := s.cfg.History.Stats(r.Context(), "")
	if err != nil {
		s.log.Error("failed to gather stats for status", "error", err)
	}

	s.respondJSON(w, http.StatusOK, adminStatusResponse{
		Paused:        s.cfg.Faucet.Paused(),
		SignerAddress: s.cfg.Chain.Signer().Hex(),
		TokenCount:    len(tokens),
		TotalClaims:   stats.TotalClaims,
	})
}

// handleAdminExport streams the full claim history as CSV.
func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	claims, err := s.cfg.History.ListAll(r.Context())
	if err != nil {
		s.log.Error("failed to export claims", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to export claims")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="claims.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "address", "token_address", "amount", "tx_hash", "claimed_at"})
	for _, rec := range claims {
		_ = cw.Write([]string{
			rec.ID.String(),
			rec.Address,
			rec.TokenAddress,
			rec.Amount,
			rec.TxHash,
			rec.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.log.Error("failed to write claims csv", "error", err)
	}
}

// handleAdminTestConnection probes the RPC endpoint and contract without
// touching on-chain state.
func (s *Server) handleAdminTestConnection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	block, err := s.cfg.Chain.Ping(ctx)
	if err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, testConnectionResponse{
		Connected:     true,
		BlockNumber:   block,
		SignerAddress: s.cfg.Chain.Signer().Hex(),
	})
}
