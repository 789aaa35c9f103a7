// Command daislerd serves the print-preparation API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/BuragaIonut/daisler/analyze"
	"github.com/BuragaIonut/daisler/extend"
	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/pipeline"
	"github.com/BuragaIonut/daisler/server"
)

const (
	defaultAddr     = ":8000"
	defaultMaxConns = 64
	shutdownGrace   = 10 * time.Second
)

type options struct {
	addr          string
	extendBaseURL string
	provider      string
	model         string
	maxConns      int
	maxUpload     int64
	logLevel      logrus.Level
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "daislerd: %v\n", err)
		os.Exit(1)
	}
}

func optionsFromEnv() (options, error) {
	opts := options{
		addr:          envOr("ADDR", defaultAddr),
		extendBaseURL: os.Getenv("EXTEND_BASE_URL"),
		provider:      envOr("ANALYZE_PROVIDER", "openai"),
		model:         os.Getenv("ANALYZE_MODEL"),
		maxConns:      defaultMaxConns,
		logLevel:      logrus.InfoLevel,
	}
	if v := os.Getenv("MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("MAX_CONNS must be a positive integer, got %q", v)
		}
		opts.maxConns = n
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer, got %q", v)
		}
		opts.maxUpload = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return opts, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		opts.logLevel = lvl
	}
	return opts, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run() error {
	opts, err := optionsFromEnv()
	if err != nil {
		return err
	}

	base := logrus.New()
	base.SetLevel(opts.logLevel)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := observability.NewLogrus(base)

	var extender extend.Extender
	if opts.extendBaseURL != "" {
		extender = extend.NewClient(opts.extendBaseURL, extend.WithLogger(log))
		log.Info("extension service configured", observability.String("base_url", opts.extendBaseURL))
	} else {
		log.Warn("EXTEND_BASE_URL not set, canvas extension disabled")
	}

	analyzeCfg := analyze.DefaultConfig()
	analyzeCfg.Provider = opts.provider
	if opts.model != "" {
		analyzeCfg.Model = opts.model
	}
	analyzer, err := analyze.New(analyzeCfg, log)
	if err != nil {
		log.Warn("vision analysis disabled", observability.Error("error", err))
		analyzer = nil
	}

	pipe := pipeline.New(extender, log)
	srv := server.New(server.Config{MaxUploadBytes: opts.maxUpload}, analyzer, pipe, log)

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return err
	}
	ln = netutil.LimitListener(ln, opts.maxConns)

	httpSrv := &http.Server{
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	log.Info("listening",
		observability.String("addr", opts.addr),
		observability.Int("max_conns", opts.maxConns))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", observability.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
