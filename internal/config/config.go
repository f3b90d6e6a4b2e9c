package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"projtrack/internal/spreadsheet"
	"projtrack/pkg/config"
)

type OrchestratorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	// DedupTTL 逾期事件去重窗口
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

type ImportConfig struct {
	Columns spreadsheet.ColumnMapping `yaml:"columns"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Server       config.ServerConfig  `yaml:"server"`
	Storage      config.StorageConfig `yaml:"storage"`
	DB           config.DBConfig      `yaml:"db"`
	Redis        config.RedisConfig   `yaml:"redis"`
	MQ           config.MQConfig      `yaml:"mq"`
	JWT          config.JWTConfig     `yaml:"jwt"`
	Log          config.LogConfig     `yaml:"log"`
	CORS         CORSConfig           `yaml:"cors"`
	Orchestrator OrchestratorConfig   `yaml:"orchestrator"`
	Import       ImportConfig         `yaml:"import"`
}

// Default is used as-is when no config directory exists.
func Default() *Config {
	return &Config{
		Server:  config.ServerConfig{Port: "8080"},
		Storage: config.StorageConfig{Backend: "sqlite", Prefix: "", SQLitePath: "projtrack.db"},
		DB:      config.DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "projtrack"},
		Redis:   config.RedisConfig{Addr: "localhost:6379"},
		MQ:      config.MQConfig{Exchange: "projtrack.events"},
		JWT:     config.JWTConfig{TTLHours: 24},
		Log:     config.LogConfig{Level: "info"},
		CORS:    CORSConfig{AllowOrigins: []string{"*"}},
		Orchestrator: OrchestratorConfig{
			Enabled:  true,
			Interval: time.Minute,
			DedupTTL: 48 * time.Hour,
		},
	}
}

func DefaultDir() string { return config.GetEnv("CONFIG_DIR", "config") }

func DefaultEnv() string { return config.GetConfigEnv() }

// Load reads CONFIG_DIR (default "config") for the CONFIG_ENV environment.
func Load() (*Config, error) {
	return LoadFrom(DefaultEnv(), DefaultDir())
}

// LoadFrom layers base.yaml, <env>.yaml and secrets.env over the defaults,
// then applies environment overrides.
func LoadFrom(env, dir string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(filepath.Join(dir, "base.yaml")); err == nil {
		cfgMap, err := config.LoadConfig(env, dir)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := config.Decode(cfgMap, cfg); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideStorageFromEnv(&cfg.Storage)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideLogFromEnv(&cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "redis", "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
	}
	if c.Orchestrator.Interval <= 0 {
		c.Orchestrator.Interval = time.Minute
	}
	if c.Orchestrator.DedupTTL <= 0 {
		c.Orchestrator.DedupTTL = 48 * time.Hour
	}
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = 24
	}
	return nil
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWT.TTLHours) * time.Hour
}
