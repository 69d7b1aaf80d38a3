package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	ContentPath   string
	DataPath      string
	ListenAddr    string
	AuthUser      string
	AuthPass      string
	AuthFile      string
	AssetPrefix   string
	AdClient      string
	AdSlot        string
	CodeStyle     string
	DBBusyTimeout time.Duration
	CacheMax      int
}

func Load() Config {
	initEnvFile()
	cfg := Config{
		ContentPath: envOr("MDTREE_CONTENT_PATH", "."),
		DataPath:    os.Getenv("MDTREE_DATA_PATH"),
		ListenAddr:  envOr("MDTREE_LISTEN_ADDR", "127.0.0.1:8080"),
		AuthUser:    os.Getenv("MDTREE_AUTH_USER"),
		AuthPass:    os.Getenv("MDTREE_AUTH_PASS"),
		AuthFile:    os.Getenv("MDTREE_AUTH_FILE"),
		AssetPrefix: envOr("MDTREE_ASSET_PREFIX", "/assets/posts"),
		AdClient:    os.Getenv("MDTREE_AD_CLIENT"),
		AdSlot:      os.Getenv("MDTREE_AD_SLOT"),
		CodeStyle:   envOr("MDTREE_CODE_STYLE", "github"),
	}
	if cfg.DataPath == "" {
		cfg.DataPath = filepath.Join(cfg.ContentPath, ".mdtree")
	}

	cfg.DBBusyTimeout = parseDurationOr("MDTREE_DB_BUSY_TIMEOUT", 5*time.Second)
	cfg.CacheMax = parseIntOr("MDTREE_CACHE_MAX", 500)
	return cfg
}

// AuthFilePath is the auth file to read and update: MDTREE_AUTH_FILE or
// auth.txt in the data directory.
func (c Config) AuthFilePath() string {
	if c.AuthFile != "" {
		return c.AuthFile
	}
	return filepath.Join(c.DataPath, "auth.txt")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
