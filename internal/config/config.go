package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AppName   = "lazyproject"
	EnvPrefix = "LAZYPROJECT_"
)

type Config struct {
	DBPath                 string   `json:"db_path" env:"DB_PATH"`
	OwnerID                string   `json:"owner_id" env:"OWNER_ID"`
	WebEnabled             bool     `json:"web_enabled" env:"WEB_ENABLED"`
	WebPort                int      `json:"web_port" env:"WEB_PORT"`
	TablesConnectionString string   `json:"tables_connection_string,omitempty" env:"TABLES_CONNECTION_STRING"`
	RedisURL               string   `json:"redis_url,omitempty" env:"REDIS_URL"`
	CacheTTL               Duration `json:"cache_ttl,omitempty" env:"CACHE_TTL"`
	JWTSecret              string   `json:"-" env:"JWT_SECRET"`
	Debug                  bool     `json:"debug" env:"DEBUG"`
}

func Default() Config {
	return Config{OwnerID: "local", WebPort: 8080, CacheTTL: Duration(5 * time.Minute)}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName, "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides cfg with the LAZYPROJECT_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Duration is a time.Duration written as text ("90s", "5m") in the config
// file and the environment. Zero disables caching.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL)
}
