package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/driplabs/faucet/internal/auth"
	"github.com/driplabs/faucet/internal/chain"
	"github.com/driplabs/faucet/internal/config"
	"github.com/driplabs/faucet/internal/faucet"
	"github.com/driplabs/faucet/internal/logger"
	"github.com/driplabs/faucet/internal/metrics"
	"github.com/driplabs/faucet/internal/server"
	"github.com/driplabs/faucet/internal/store"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "Enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "Enable pprof server on localhost:6060")
	listenAddrFlag := flag.String("listen-addr", "", "Address to listen on for the API (overrides LISTEN_ADDR)")
	metricsAddrFlag := flag.String("metrics-addr", "", "Address to listen on for prometheus metrics (overrides METRICS_ADDR)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for graceful shutdown")
	flag.Parse()

	log := logger.New(*verboseFlag)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *listenAddrFlag != "" {
		cfg.ListenAddr = *listenAddrFlag
	}
	if *metricsAddrFlag != "" {
		cfg.MetricsAddr = *metricsAddrFlag
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     version,
		}); err != nil {
			log.Warn("failed to initialize sentry, continuing without it", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	chainClient, err := chain.New(ctx, chain.Config{
		Logger:          log,
		RPCURL:          cfg.RPCURL,
		PrivateKey:      cfg.PrivateKey,
		ContractAddress: cfg.ContractAddress,
		ChainID:         cfg.ChainID,
		ConfirmTimeout:  cfg.ConfirmTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create chain client: %w", err)
	}
	defer chainClient.Close()

	// History and registry default to in-memory stores; postgres makes them
	// survive restarts.
	var history store.HistoryStore = store.NewMemoryHistory()
	var tokens store.TokenStore = store.NewMemoryTokens()
	if cfg.Postgres != nil {
		pg, err := store.NewPostgres(ctx, log, cfg.Postgres.ConnString())
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pg.Close()
		history = pg.History()
		tokens = pg.Tokens()
	}

	authSvc, err := auth.New(auth.Config{
		Logger:       log,
		JWTSecret:    cfg.JWTSecret,
		AdminAddress: cfg.AdminAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	faucetSvc, err := faucet.New(faucet.Config{
		Logger:       log,
		Chain:        chainClient,
		History:      history,
		Tokens:       tokens,
		ETHCooldown:  cfg.ETHCooldown,
		ETHAmountWei: cfg.ETHAmountWei,
	})
	if err != nil {
		return fmt.Errorf("failed to create faucet service: %w", err)
	}

	srv, err := server.New(server.Config{
		Logger:          log,
		ListenAddr:      cfg.ListenAddr,
		CORSOrigin:      cfg.CORSOrigin,
		Production:      cfg.Production(),
		VersionInfo:     server.VersionInfo{Version: version, Commit: commit, Date: date},
		RateLimitRPM:    cfg.RateLimitRPM,
		RateLimitBurst:  cfg.RateLimitBurst,
		Faucet:          faucetSvc,
		Auth:            authSvc,
		History:         history,
		Tokens:          tokens,
		Chain:           chainClient,
		ETHAmountWei:    cfg.ETHAmountWei,
		ShutdownTimeout: *shutdownTimeoutFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		g.Go(func() error {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsSrv := &http.Server{Handler: mux}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(shutdownCtx)
			}()
			if err := metricsSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}
