package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"linkdoctor/internal/config"
	"linkdoctor/internal/environment"
	"linkdoctor/internal/metrics"
	"linkdoctor/internal/probe"
	"linkdoctor/internal/server"
	"linkdoctor/internal/session"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", "", "address for the web server (overrides config)")
		once       = flag.Bool("once", false, "run a single scan, print the result as JSON and exit")
		ab         = flag.Bool("ab", false, "with -once, run the after-reset scan once Enter is pressed")
	)
	flag.Parse()

	if err := run(*configPath, *addr, *once, *ab); err != nil {
		log.Fatal(err)
	}
}

// run wires the service and blocks until it stops. Errors are returned so
// deferred cleanup runs before the process exits.
func run(configPath, addr string, once, ab bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("configuration loaded",
		zap.String("path", configPath),
		zap.Int("endpoints", len(cfg.Endpoints)),
		zap.Duration("probe_timeout", cfg.Probe.Timeout()),
	)

	m := metrics.New()
	executor := probe.NewExecutor(cfg.Probe.Timeout(), logger.Named("probe"), m)
	env := environment.NewDevice()

	abEnabled := cfg.Session.ABEnabled
	if once {
		abEnabled = ab
	}
	sess := session.New(session.NewProbeScanner(executor, cfg.Endpoints), env, session.Options{
		ABEnabled:        abEnabled,
		ProbingEnabled:   cfg.Session.ProbingEnabled,
		ProgressSteps:    cfg.Session.ProgressSteps,
		ProgressInterval: cfg.Session.ProgressInterval(),
		Logger:           logger.Named("session"),
		Observer:         m,
	})
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		if err := runOnce(ctx, sess, ab, os.Stdin, os.Stdout, os.Stderr); err != nil {
			logger.Error("scan failed", zap.Error(err))
			return err
		}
		return nil
	}

	srv := server.New(sess, env, server.Options{
		Addr:              cfg.Addr,
		ScanRatePerMinute: cfg.Server.ScanRatePerMinute,
		Endpoints:         cfg.Endpoints,
		Metrics:           m,
		Logger:            logger.Named("http"),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("linkdoctor listening",
		zap.String("addr", cfg.Addr),
		zap.Bool("ab_enabled", cfg.Session.ABEnabled),
		zap.Bool("probing_enabled", cfg.Session.ProbingEnabled),
	)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// runOnce drives one session from the terminal: a baseline scan and, when ab
// is set, an after-reset scan started by pressing Enter. Snapshots go to out
// and the prompt to prompt.
func runOnce(ctx context.Context, sess *session.Orchestrator, ab bool, in io.Reader, out, prompt io.Writer) error {
	if err := sess.Start(); err != nil {
		return fmt.Errorf("start baseline: %w", err)
	}
	if err := sess.Wait(ctx); err != nil {
		return fmt.Errorf("wait for baseline: %w", err)
	}
	if err := printSnapshot(out, sess.Snapshot()); err != nil {
		return err
	}

	if !ab || sess.Snapshot().Session.Phase != session.PhaseBaselineReady {
		return nil
	}

	fmt.Fprintln(prompt, "Reset the connection (airplane mode, reconnect), then press Enter.")
	if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if err := sess.StartAfter(); err != nil {
		return fmt.Errorf("start after-reset: %w", err)
	}
	if err := sess.Wait(ctx); err != nil {
		return fmt.Errorf("wait for after-reset: %w", err)
	}
	return printSnapshot(out, sess.Snapshot())
}

func printSnapshot(out io.Writer, snap session.Snapshot) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
