// Command router is the process entry point: it loads configuration,
// wires every internal component together, and serves the MCP tool
// surface over HTTP until told to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/cache"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/executor"
	"github.com/compresr/ai-request-router/internal/learner"
	"github.com/compresr/ai-request-router/internal/mcptool"
	"github.com/compresr/ai-request-router/internal/monitoring"
	"github.com/compresr/ai-request-router/internal/router"
	"github.com/compresr/ai-request-router/internal/store"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "configure" {
		runConfigureCommand(args[1:])
		return
	}
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}
	runServeCommand(args)
}

// runServeCommand parses flags, wires every component, and blocks
// until a shutdown signal arrives.
func runServeCommand(args []string) {
	var (
		envPath       string
		endpointsPath string
		addr          = ":8085"
		debug         bool
	)

	i := 0
	for i < len(args) {
		switch args[i] {
		case "-h", "--help":
			printServeHelp()
			return
		case "--env":
			envPath = argValue(args, &i)
		case "--endpoints":
			endpointsPath = argValue(args, &i)
		case "--addr":
			addr = argValue(args, &i)
		case "-d", "--debug":
			debug = true
			i++
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n", args[i])
			os.Exit(1)
		}
	}

	setupLogging(debug)

	cfg, err := config.Load(envPath, endpointsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	breakerCfg := breaker.Config{
		FailureThreshold:  cfg.BreakerFailureThreshold,
		OpenCooldown:      cfg.BreakerOpenCooldown,
		HalfOpenSuccesses: cfg.BreakerHalfOpenSuccesses,
	}

	reg := endpoint.NewRegistry(cfg.Endpoints, breakerCfg)
	ca := cache.New(cfg.CacheMaxEntries, cfg.CacheMaxBytes, cfg.CacheTTL)
	l := learner.New(config.DefaultLearnerMaxEntries, cfg.EmpiricalDemoteThreshold, cfg.EmpiricalMinObservations)
	rtr := router.New(reg, l, cfg.RequestTimeoutBase, cfg.ComplexMultiplier, cfg.LocalFirstRatio)
	ex := executor.New(&http.Client{})
	collector := monitoring.NewCollector()

	snap, err := store.Open(cfg.SnapshotPath)
	if err != nil {
		log.Warn().Err(err).Msg("snapshot store unavailable, persistence disabled")
		snap, _ = store.Open("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rows, err := snap.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load empirical snapshot, starting cold")
	} else if len(rows) > 0 {
		l.Restore(rows)
		log.Info().Int("rows", len(rows)).Msg("restored empirical snapshot")
	}

	svc := mcptool.New(cfg, reg, ca, l, rtr, ex, collector, snap)

	go endpoint.NewMonitor(reg, &http.Client{}, cfg).Run(ctx)
	go runSnapshotFlushLoop(ctx, snap, l)

	mux := buildMux(svc, ctx)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Str("addr", addr).Int("endpoints", len(cfg.Endpoints)).Msg("router listening")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server exited unexpectedly")
		}
	case <-sigCh:
		log.Info().Msg("shutdown signal received, draining")
	}

	signal.Stop(sigCh)
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DrainOnShutdown)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("forced shutdown after drain timeout")
	}

	cancel()
	if err := snap.Flush(shutdownCtx, l.AllEntries()); err != nil {
		log.Warn().Err(err).Msg("final snapshot flush failed")
	}
	_ = snap.Close()
}

// runSnapshotFlushLoop periodically persists the learner's table so a
// restart doesn't start the empirical routing cold.
func runSnapshotFlushLoop(ctx context.Context, snap *store.Store, l *learner.Learner) {
	ticker := time.NewTicker(config.DefaultSnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := snap.Flush(ctx, l.AllEntries()); err != nil {
				log.Debug().Err(err).Msg("periodic snapshot flush failed")
			}
		}
	}
}

func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
}

func argValue(args []string, i *int) string {
	if *i+1 >= len(args) {
		fmt.Fprintf(os.Stderr, "%s requires a value\n", args[*i])
		os.Exit(1)
	}
	v := args[*i+1]
	*i += 2
	return v
}

func printServeHelp() {
	fmt.Println(strings.TrimSpace(`
router [serve] [--env path] [--endpoints path] [--addr :8085] [--debug]
router configure   interactively set an endpoint's bearer secret
`))
}

