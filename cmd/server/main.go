// Command server wires the full restoreq process together: artifact
// store, stage catalog, worker invoker, scheduler, heartbeat monitor,
// cleanup sweeper, realtime hub and HTTP edge. Grounded on the
// teacher's cmd/main.go (construct an app, start its background
// components, run its HTTP server), generalized from an app.New()
// facade to an explicit wiring list since this module has far fewer
// cross-cutting collaborators than the teacher's.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/restoreq/restoreq/internal/artifact"
	"github.com/restoreq/restoreq/internal/cleanup"
	"github.com/restoreq/restoreq/internal/config"
	"github.com/restoreq/restoreq/internal/heartbeat"
	"github.com/restoreq/restoreq/internal/httpapi"
	"github.com/restoreq/restoreq/internal/httpapi/handlers"
	"github.com/restoreq/restoreq/internal/pkg/envutil"
	"github.com/restoreq/restoreq/internal/pkg/logger"
	"github.com/restoreq/restoreq/internal/photostore"
	"github.com/restoreq/restoreq/internal/realtime"
	"github.com/restoreq/restoreq/internal/scheduler"
	"github.com/restoreq/restoreq/internal/setup"
	"github.com/restoreq/restoreq/internal/stages"
	"github.com/restoreq/restoreq/internal/worker"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	masksDir := cfg.MasksDir
	store, err := artifact.New(cfg.UploadsDir, cfg.ResultsDir, masksDir, log)
	if err != nil {
		log.Fatal("failed to initialize artifact store", "error", err)
	}

	photos := photostore.New()

	catalog := stages.NewCatalog(store.Delete)
	registry, err := stages.NewRegistry(catalog)
	if err != nil {
		log.Fatal("failed to build stage registry", "error", err)
	}

	invoker := worker.NewInvoker(cfg.WorkerInterpreter, log)

	sched := scheduler.New(
		registry,
		store,
		invoker,
		photos,
		nil, // notifier attached below, once the hub exists
		envutil.NonEmpty,
		cfg.MaxConcurrentJobs,
		log,
	)
	hub := realtime.New(sched.Touch, log)
	sched.AttachNotifier(hub)

	// The worker environment bootstrap is an external collaborator
	// (§1); this process only reads its state files. A bare local
	// interpreter is treated as always-ready.
	sched.SetReady(true)

	prober := setup.New(
		envutil.String("SETUP_PID_FILE", ""),
		envutil.String("SETUP_LOG_FILE", ""),
		envutil.String("SETUP_ERROR_FILE", ""),
		envutil.String("SETUP_DEVICE", "cpu"),
	)

	sweeper := cleanup.New(
		cfg.UploadsDir, cfg.ResultsDir,
		cfg.CleanupMaxAge, cfg.CleanupInterval,
		store.PathForURL,
		photos,
		sched,
		log,
	)
	monitor := heartbeat.New(sched, cfg.HeartbeatTimeout, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go monitor.Run(ctx)
	go sweeper.Run(ctx)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		PhotoHandler:    handlers.NewPhotoHandler(photos, store),
		JobHandler:      handlers.NewJobHandler(sched),
		StepsHandler:    handlers.NewStepsHandler(registry),
		SettingsHandler: handlers.NewSettingsHandler(sched),
		StatusHandler:   handlers.NewStatusHandler(prober),
		RealtimeHandler: handlers.NewRealtimeHandler(hub),
		HealthHandler:   handlers.NewHealthHandler(),
		UploadsDir:      cfg.UploadsDir,
		ResultsDir:      cfg.ResultsDir,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", "error", err)
	}
}
