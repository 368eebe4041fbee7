package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhive.org/internal/auth"
	"taskhive.org/internal/config"
	"taskhive.org/internal/httpapi"
	"taskhive.org/internal/obs"
	"taskhive.org/internal/session"
	"taskhive.org/internal/store/mongo"
	"taskhive.org/internal/task"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("TASKHIVE_COMMIT"))

	cfg := config.Load()

	// With a Mongo URI the document store backs everything; without one the
	// in-memory stores serve a single-process development setup.
	var (
		userStore auth.UserStore
		taskStore task.Store
		probe     httpapi.ReadyProbe
		closeFn   func(context.Context) error
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			log.Fatalf("open mongo: %v", err)
		}
		userStore = store.Users()
		taskStore = store.Tasks()
		probe = httpapi.ReadyProbe{Store: store}
		closeFn = store.Close
	} else {
		userStore = auth.NewInMemory()
		taskStore = task.NewInMemory()
	}

	users, err := auth.NewService(userStore, cfg.AccessSecret, cfg.RefreshSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	tasks := task.NewService(taskStore, userStore)

	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		log.Fatalf("session codec: %v", err)
	}

	api := httpapi.New(users, tasks, codec, probe, version,
		httpapi.WithCookieSecure(cfg.CookieSecure),
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting taskhive-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if closeFn != nil {
		_ = closeFn(ctx)
	}
	log.Println("Stopped")
}
