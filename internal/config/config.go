package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr   = ":8080"
	DefaultDataDir      = "/data"
	DefaultChunkSize    = 8 << 20
	DefaultMaxChunkSize = 64 << 20
	DefaultFlushDelay   = 1500 * time.Millisecond
	DefaultFlushWorkers = 4
	DefaultGCTTL        = 24 * time.Hour
	DefaultGCInterval   = 30 * time.Minute
)

type Config struct {
	ListenAddr       string        `yaml:"listen_addr" json:"listen_addr"`
	DataDir          string        `yaml:"data_dir" json:"data_dir"`
	MetaDSN          string        `yaml:"meta_dsn" json:"meta_dsn"`
	DefaultChunkSize int64         `yaml:"default_chunk_size" json:"default_chunk_size"`
	MaxChunkSize     int64         `yaml:"max_chunk_size" json:"max_chunk_size"`
	FlushDelay       time.Duration `yaml:"flush_delay" json:"flush_delay"`
	FlushWorkers     int           `yaml:"flush_workers" json:"flush_workers"`
	GCTTL            time.Duration `yaml:"gc_ttl" json:"gc_ttl"`
	GCInterval       time.Duration `yaml:"gc_interval" json:"gc_interval"`
	LogLevel         string        `yaml:"log_level" json:"log_level"`
	LogMode          string        `yaml:"log_mode" json:"log_mode"`
	LogFile          string        `yaml:"log_file" json:"log_file"`
}

// Load читает YAML-конфигурацию (если файл есть), применяет ENV-переопределения и дефолты.
func Load() (*Config, error) {
	var c Config

	path := getenv("CONFIG_PATH", "./config.yaml")
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Без файла работаем на ENV и дефолтах.
	default:
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// ENV override
func (c *Config) applyEnv() error {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("META_DSN"); v != "" {
		c.MetaDSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		c.LogMode = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.LogFile = v
	}

	var err error
	if c.DefaultChunkSize, err = envInt64("DEFAULT_CHUNK_SIZE", c.DefaultChunkSize); err != nil {
		return err
	}
	if c.MaxChunkSize, err = envInt64("MAX_CHUNK_SIZE", c.MaxChunkSize); err != nil {
		return err
	}
	if c.FlushDelay, err = envDuration("FLUSH_DELAY", c.FlushDelay); err != nil {
		return err
	}
	if c.GCTTL, err = envDuration("GC_TTL", c.GCTTL); err != nil {
		return err
	}
	if c.GCInterval, err = envDuration("GC_INTERVAL", c.GCInterval); err != nil {
		return err
	}
	if v := os.Getenv("FLUSH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FLUSH_WORKERS: %w", err)
		}
		c.FlushWorkers = n
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.MetaDSN == "" {
		c.MetaDSN = "file://" + c.DataDir
	}
	if c.DefaultChunkSize == 0 {
		c.DefaultChunkSize = DefaultChunkSize
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.FlushDelay == 0 {
		c.FlushDelay = DefaultFlushDelay
	}
	if c.FlushWorkers == 0 {
		c.FlushWorkers = DefaultFlushWorkers
	}
	if c.GCTTL == 0 {
		c.GCTTL = DefaultGCTTL
	}
	if c.GCInterval == 0 {
		c.GCInterval = DefaultGCInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMode == "" {
		c.LogMode = "production"
	}
}

// Validate отсекает значения, с которыми сервис не сможет работать.
func (c *Config) Validate() error {
	if c.DefaultChunkSize <= 0 {
		return fmt.Errorf("default_chunk_size must be > 0")
	}
	if c.MaxChunkSize < c.DefaultChunkSize {
		return fmt.Errorf("max_chunk_size must be >= default_chunk_size")
	}
	if c.FlushDelay < 0 {
		return fmt.Errorf("flush_delay must be >= 0")
	}
	if c.FlushWorkers < 0 {
		return fmt.Errorf("flush_workers must be >= 0")
	}

	return nil
}

func envInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return d, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}
