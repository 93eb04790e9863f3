package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/lazyproject/internal/cache"
	"github.com/Joseda-hg/lazyproject/internal/config"
	"github.com/Joseda-hg/lazyproject/internal/db"
	"github.com/Joseda-hg/lazyproject/internal/planner"
	"github.com/Joseda-hg/lazyproject/internal/store"
	"github.com/Joseda-hg/lazyproject/internal/tables"
	"github.com/Joseda-hg/lazyproject/internal/tui"
	"github.com/Joseda-hg/lazyproject/internal/web"
)

var (
	configPathFlag = flag.String("config", "", "config file path")
	dbPathFlag     = flag.String("db", "", "sqlite db path")
	webFlag        = flag.Bool("web", false, "enable web server")
	webOnlyFlag    = flag.Bool("web-only", false, "run web server only")
	portFlag       = flag.Int("port", 0, "web server port")
	ownerFlag      = flag.String("owner", "", "owner id used by the terminal UI and unauthenticated web requests")
	debugFlag      = flag.Bool("debug", false, "debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so they are released before main exits.
func run() error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if !*webOnlyFlag {
		logFile, err := openLogFile(filepath.Join(filepath.Dir(cfgPath), "lazyproject.log"))
		if err != nil {
			return err
		}
		defer logFile.Close()
		logger.SetOutput(logFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := planner.New(st, logger)

	if cfg.WebEnabled || *webOnlyFlag {
		addr := fmt.Sprintf(":%d", cfg.WebPort)
		server := web.NewServer(svc, web.NewAuth(cfg.JWTSecret, cfg.OwnerID), logger)
		if *webOnlyFlag {
			logger.Infof("web server running at http://localhost%s", addr)
			return server.Run(ctx, addr)
		}

		go func() {
			logger.Infof("web server running at http://localhost%s", addr)
			if err := server.Run(ctx, addr); err != nil {
				logger.WithError(err).Error("web server")
			}
		}()
	}

	return tui.Run(svc, cfg.OwnerID)
}

// loadConfig reads the file, fills in flags and the default db path, and
// writes the result back. Environment values are applied afterwards and are
// not saved; flags still win over them.
func loadConfig(cfgPath string) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	applyFlags(&cfg)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazyproject.db")
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return config.Config{}, err
	}

	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	applyFlags(&cfg)
	return cfg, nil
}

// applyFlags copies the flags given on the command line into cfg.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DBPath = *dbPathFlag
		case "web":
			cfg.WebEnabled = *webFlag
		case "port":
			cfg.WebPort = *portFlag
		case "owner":
			cfg.OwnerID = *ownerFlag
		case "debug":
			cfg.Debug = *debugFlag
		}
	})
	if cfg.WebPort == 0 {
		cfg.WebPort = 8080
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = "local"
	}
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openLogFile(path string) (io.WriteCloser, error) {
	if err := config.EnsureDir(path); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// openStore picks Azure Tables when a connection string is configured and
// SQLite otherwise, then puts the Redis cache in front when a URL is set.
func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (store.Store, func(), error) {
	var (
		base    store.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.TablesConnectionString != "" {
		remote, err := tables.New(cfg.TablesConnectionString, tables.DefaultTableNames())
		if err != nil {
			return nil, nil, err
		}
		ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := remote.EnsureTables(ensureCtx); err != nil {
			return nil, nil, fmt.Errorf("ensure tables: %w", err)
		}
		logger.Info("using azure table storage")
		base = remote
	} else {
		if err := config.EnsureDir(cfg.DBPath); err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = sqlDB.Close() })
		logger.WithField("path", cfg.DBPath).Info("using sqlite")
		base = db.NewStore(sqlDB)
	}

	if cfg.RedisURL == "" {
		return base, closeAll, nil
	}
	ttl := cfg.CacheDuration()
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable, caching disabled")
		_ = client.Close()
		return base, closeAll, nil
	}
	closers = append(closers, func() { _ = client.Close() })
	logger.WithField("ttl", ttl).Info("redis cache enabled")
	return cache.New(base, client, ttl), closeAll, nil
}
