// Command relayer runs the relayx JSON-RPC relayer service: it accepts
// signed intents over HTTP, simulates and broadcasts them, and polls for
// receipts until they land or are resubmitted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/relayx/relayer/internal/rpcserver"
	"github.com/relayx/relayer/internal/telemetry"
	"github.com/relayx/relayer/src/relay/config"
	"github.com/relayx/relayer/src/relay/coordinator"
	"github.com/relayx/relayer/src/relay/pricer"
	"github.com/relayx/relayer/src/relay/rpcclient"
	"github.com/relayx/relayer/src/relay/simulate"
	"github.com/relayx/relayer/src/relay/store"
	"github.com/relayx/relayer/src/relay/submitter"
)

const shutdownGrace = 30 * time.Second

func main() {
	opts := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	if err := telemetry.InitLogging(cfg.LogLevel()); err != nil {
		gethlog.Warn("continuing with fallback log level", "err", err)
	}

	if err := run(cfg); err != nil {
		gethlog.Crit("relayer exited", "err", err)
	}
}

func run(cfg *config.Tree) error {
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	pool := rpcclient.NewPool(cfg)
	sim := simulate.New(pool, cfg.IsSimulationDisabled())

	signerKey, haveKey := cfg.SignerKey()
	if !haveKey {
		if !cfg.StubMode() {
			return errors.New("no relayer private key configured (set -relayer-private-key, RELAYX_PRIVATE_KEY, or enable RELAYX_STUB_MODE)")
		}
		ephemeral, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate stub signer key: %w", err)
		}
		signerKey = common.Bytes2Hex(crypto.FromECDSA(ephemeral))
		gethlog.Warn("RELAYX_STUB_MODE: signing with an ephemeral in-memory key, restart loses it")
	}

	sub, err := submitter.New(pool, signerKey)
	if err != nil {
		return fmt.Errorf("construct submitter: %w", err)
	}
	gethlog.Info("relayer address", "address", sub.Address().Hex())

	coord := coordinator.New(st, pool, sim, sub, cfg)
	if !cfg.StubMode() {
		auditPath := filepath.Join(cfg.DBPath(), "audit.ndjson")
		auditLogger, err := telemetry.NewAuditLogger(auditPath)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		coord.SetAuditLogger(auditLogger)
	}
	pc := pricer.New(pool, cfg)

	relayerSvc := rpcserver.NewRelayerService(coord, pc, pool, cfg)
	healthSvc := rpcserver.NewHealthService(st, time.Now())

	handler, err := rpcserver.NewHandler(relayerSvc, healthSvc, cfg.CorsOrigins())
	if err != nil {
		return fmt.Errorf("build rpc handler: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPAddress(), cfg.HTTPPort()),
		Handler: handler,
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		coord.RunMonitor(monitorCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		gethlog.Info("rpc server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		gethlog.Info("shutdown signal received", "signal", sig)
	case err := <-serveErr:
		if err != nil {
			stopMonitor()
			<-monitorDone
			return fmt.Errorf("rpc server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		gethlog.Warn("http shutdown did not complete cleanly", "err", err)
	}

	stopMonitor()
	<-monitorDone

	gethlog.Info("relayer stopped")
	return nil
}

func openStore(cfg *config.Tree) (store.Store, error) {
	if cfg.StubMode() {
		return store.NewMemory(), nil
	}
	return store.NewFile(cfg.DBPath())
}
