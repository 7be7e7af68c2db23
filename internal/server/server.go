// Package server wires the HTTP surface: faucet, auth and admin routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/driplabs/faucet/internal/auth"
	"github.com/driplabs/faucet/internal/faucet"
	"github.com/driplabs/faucet/internal/metrics"
	"github.com/driplabs/faucet/internal/store"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// ChainStatus is the read-only chain surface the admin endpoints use.
type ChainStatus interface {
	Ping(ctx context.Context) (uint64, error)
	Signer() common.Address
	ERC20Metadata(ctx context.Context, token common.Address) (symbol, name string, decimals uint8, err error)
}

// Config holds the server dependencies.
type Config struct {
	Logger      *slog.Logger
	ListenAddr  string
	CORSOrigin  string
	Production  bool
	VersionInfo VersionInfo

	RateLimitRPM   int
	RateLimitBurst int

	Faucet  *faucet.Service
	Auth    *auth.Service
	History store.HistoryStore
	Tokens  store.TokenStore
	Chain   ChainStatus

	// Native asset presentation for GET /faucet/tokens.
	ETHAmountWei *big.Int

	ShutdownTimeout time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Faucet == nil {
		return errors.New("faucet service is required")
	}
	if cfg.Auth == nil {
		return errors.New("auth service is required")
	}
	if cfg.History == nil {
		return errors.New("history store is required")
	}
	if cfg.Tokens == nil {
		return errors.New("token store is required")
	}
	if cfg.Chain == nil {
		return errors.New("chain status client is required")
	}
	if cfg.ETHAmountWei == nil {
		return errors.New("eth amount is required")
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.RateLimitRPM <= 0 {
		cfg.RateLimitRPM = 60
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return nil
}

// Server is the faucet HTTP server.
type Server struct {
	log     *slog.Logger
	cfg     Config
	router  *chi.Mux
	httpSrv *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		log:    cfg.Logger,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Claim handlers block on transaction confirmation, so the write
		// timeout has to outlast the confirmation wait.
		WriteTimeout:   3 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.CORSOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/version", s.handleVersion)

	limiter := NewRateLimiter(s.cfg.RateLimitRPM, s.cfg.RateLimitBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/nonce", s.handleAuthNonce)
			r.Post("/verify", s.handleAuthVerify)
			r.With(s.requireAuth).Get("/me", s.handleAuthMe)
		})

		r.Route("/faucet", func(r chi.Router) {
			r.Get("/tokens", s.handleListTokens)
			r.Post("/claim", s.handleClaim)
			r.Get("/stats", s.handleStats)
			r.Get("/history/{address}", s.handleHistory)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth, s.requireAdmin)
			r.Post("/tokens", s.handleAdminAddToken)
			r.Put("/tokens/{address}", s.handleAdminUpdateToken)
			r.Delete("/tokens/{address}", s.handleAdminRemoveToken)
			r.Post("/pause", s.handleAdminPause)
			r.Post("/unpause", s.handleAdminUnpause)
			r.Get("/status", s.handleAdminStatus)
			r.Get("/claims/export", s.handleAdminExport)
			r.Get("/test-connection", s.handleAdminTestConnection)
		})
	})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("http server listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.log.Info("http server stopping", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("http server shutdown complete")
		return nil
	case err := <-serveErrCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write healthz response", "error", err)
	}
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.cfg.Chain.Ping(ctx); err != nil {
		s.log.Debug("readyz: chain not reachable", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("chain not reachable\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.cfg.VersionInfo)
}
