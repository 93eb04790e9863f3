package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/cache"
	"github.com/Joseda-hg/lazyproject/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadConfigReturnsEnvErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("LAZYPROJECT_CACHE_TTL", "-1m")
	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestLoadConfigKeepsEnvOutOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("LAZYPROJECT_OWNER_ID", "alice")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OwnerID != "alice" {
		t.Fatalf("expected env owner, got %q", cfg.OwnerID)
	}
	if cfg.DBPath != filepath.Join(filepath.Dir(path), "lazyproject.db") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}

	saved, err := config.Load(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if saved.OwnerID != "local" {
		t.Fatalf("expected env owner not to be saved, got %q", saved.OwnerID)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "data", "lazyproject.db")

	st, closeStore, err := openStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	if _, err := st.ListProjects(context.Background(), "local"); err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		t.Fatalf("expected db file: %v", err)
	}
}

func TestOpenStoreUsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "lazyproject.db")
	cfg.RedisURL = "redis://" + mr.Addr()

	st, closeStore, err := openStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	if _, ok := st.(*cache.Store); !ok {
		t.Fatalf("expected cached store, got %T", st)
	}
}

func TestOpenStoreFallsBackWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "lazyproject.db")
	cfg.RedisURL = "redis://" + addr

	st, closeStore, err := openStore(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer closeStore()

	if _, ok := st.(*cache.Store); ok {
		t.Fatalf("expected plain store when redis is down")
	}
	if _, err := st.ListProjects(context.Background(), "local"); err != nil {
		t.Fatalf("list projects after fallback: %v", err)
	}
}
