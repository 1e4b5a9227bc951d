package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice.org/internal/auth"
	"backoffice.org/internal/config"
	"backoffice.org/internal/engine"
	"backoffice.org/internal/files"
	"backoffice.org/internal/httpapi"
	"backoffice.org/internal/obs"
	"backoffice.org/internal/store/pg"
)

var version = "0.1.0"

func main() {
	// Observability first: metric registration and the JSON logger.
	obs.Init()
	obs.InitBuildInfo(version, "")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gw, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	storage := files.NewStorage(cfg.UploadDir)
	authSvc := auth.NewService(gw, tokens)
	eng := engine.New(gw, storage)

	api := httpapi.New(httpapi.Config{
		Engine:       eng,
		Auth:         authSvc,
		Gateway:      gw,
		Storage:      storage,
		Probe:        httpapi.ReadyProbe{DB: gw.DB()},
		Version:      version,
		LoginRPM:     cfg.LoginRPM,
		RequestRPS:   cfg.RequestRPS,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting backoffice-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = gw.Close()
	log.Println("Stopped")
}
