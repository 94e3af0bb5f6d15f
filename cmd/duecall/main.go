package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antoniostano/duecall/internal/app"
	"github.com/antoniostano/duecall/internal/config"
	"github.com/antoniostano/duecall/internal/dispatch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	built, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Printf("cleanup: %v", err)
		}
	}()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	built.Sessions.StartReaper(runCtx, 30*time.Second)

	// The dispatch consumer runs calls; each job is one outbound call from
	// dial to teardown.
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		err := built.Queue.Consume(runCtx, func(jobCtx context.Context, job dispatch.Job) error {
			return built.Orchestrator.Run(jobCtx, job)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("dispatch consumer stopped: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}
	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	// Stop in-flight calls first; their teardown paths persist transcripts
	// before the process exits.
	runCancel()
	select {
	case <-consumerDone:
	case <-time.After(cfg.ShutdownTimeout):
		log.Printf("dispatch consumer did not stop within %s", cfg.ShutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
