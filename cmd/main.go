package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mazdak/triaged/internal/adapters/http/api"
	"github.com/mazdak/triaged/internal/adapters/notesearch"
	service "github.com/mazdak/triaged/internal/app"
	"github.com/mazdak/triaged/internal/config"
	"github.com/mazdak/triaged/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second // review actions may wait on the store
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithConcurrency(cfg.MaxConcurrentAnalyses),
		service.WithQueueSize(cfg.DispatchQueueSize),
		service.WithDedupeSize(cfg.IngestDedupeSize),
		service.WithMaxPasses(cfg.MaxPasses),
		service.WithConfidenceBars(cfg.StopConfidence, cfg.EphemeralStopConfidence),
		service.WithEpsilon(cfg.ConvergenceEpsilon),
		service.WithAutoApplyThreshold(cfg.AutoApplyThreshold),
		service.WithCacheBounds(cfg.ContextCacheTTL(), cfg.ContextCacheMaxEntries),
		service.WithContextBudget(cfg.ContextBudget),
		service.WithSearchWorkers(cfg.SearchWorkers),
		service.WithPassTimeout(cfg.PassTimeout()),
		service.WithProviderTries(uint(cfg.ProviderMaxTries)),
		service.WithProviderLatencyRange(
			time.Duration(cfg.ProviderLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.ProviderLatencyMaxMS)*time.Millisecond,
		),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	svc.LoadNotes(ctx, seedNotes())

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "http server listening", logger.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http shutdown failed", logger.Error(err))
	}
}

// seedNotes gives the in-memory searcher a small corpus so context
// retrieval does something useful out of the box.
func seedNotes() []notesearch.Note {
	return []notesearch.Note{
		{ID: "note-quarterly-planning", Text: "Quarterly planning happens the first week of each quarter with the whole platform team.", Tags: []string{"planning", "platform"}},
		{ID: "note-oncall-rotation", Text: "Oncall rotation swaps every Monday; escalations go to the platform channel.", Tags: []string{"oncall"}},
		{ID: "note-vendor-renewals", Text: "Vendor contract renewals need sixty days notice and finance signoff.", Tags: []string{"vendor", "finance"}},
		{ID: "note-travel-policy", Text: "Travel bookings above the limit need director approval before purchase.", Tags: []string{"travel", "policy"}},
	}
}
