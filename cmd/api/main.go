package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harshithlanka3/chore-cycle-backend/internal/config"
	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
	"github.com/harshithlanka3/chore-cycle-backend/internal/server"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/memory"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/postgres"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/redis"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Server.LogLevel)
	log := logger.Get()

	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to open store", "backend", cfg.Store.Backend, "error", err)
	}
	defer cleanup()

	srv := server.New(cfg, store)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shut down cleanly", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}

// openStore selects the storage backend from configuration.
func openStore(cfg *config.Config) (storage.Store, func(), error) {
	log := logger.Get()

	switch cfg.Store.Backend {
	case "memory":
		log.Warn("Using in-memory store; data will not survive a restart")
		return memory.New(), func() {}, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		store, err := postgres.Connect(cfg.GetDatabaseURL(), cfg.Server.GinMode == "debug")
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}
