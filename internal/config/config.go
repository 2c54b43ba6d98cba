package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	ListenAddr    string
	StoreBackend  string
	DBPath        string
	BadgerPath    string
	RedisAddress  string
	RedisLockTTL  time.Duration
	PhotoPath     string
	ReportURL     string
	ReportTimeout time.Duration
	LogLevel      string
	LogFormat     string
	LogFile       string
}

// Load reads configuration from the environment, falling back to the file
// named by CONFIG_FILE and then to defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("STORE_BACKEND", BackendSQLite)
	v.SetDefault("DB_PATH", "/data/obras.db")
	v.SetDefault("BADGER_PATH", "/data/badger")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_LOCK_TTL", 5*time.Second)
	v.SetDefault("PHOTO_LOCAL_PATH", "/data/photos")
	v.SetDefault("REPORT_ENDPOINT", "")
	v.SetDefault("REPORT_TIMEOUT", 30*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:    v.GetString("LISTEN_ADDR"),
		StoreBackend:  v.GetString("STORE_BACKEND"),
		DBPath:        v.GetString("DB_PATH"),
		BadgerPath:    v.GetString("BADGER_PATH"),
		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisLockTTL:  v.GetDuration("REDIS_LOCK_TTL"),
		PhotoPath:     v.GetString("PHOTO_LOCAL_PATH"),
		ReportURL:     v.GetString("REPORT_ENDPOINT"),
		ReportTimeout: v.GetDuration("REPORT_TIMEOUT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		LogFile:       v.GetString("LOG_FILE"),
	}

	switch cfg.StoreBackend {
	case BackendSQLite, BackendBadger, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}
