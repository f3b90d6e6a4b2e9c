package config

import (
	"os"
	"strconv"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	// SlowQueryMs 慢查询阈值（毫秒），0 表示默认 100ms
	SlowQueryMs int `yaml:"slow_query_ms"`
}

// MQConfig 消息队列配置，URL 为空时不启用事件转发
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig JWT配置，Secret 为空时 API 不做鉴权
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// StorageConfig selects the key-value backend holding the persisted state.
type StorageConfig struct {
	// Backend is one of redis, postgres, sqlite, memory.
	Backend    string `yaml:"backend"`
	Prefix     string `yaml:"prefix"`
	SQLitePath string `yaml:"sqlite_path"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt 忽略无法解析的值
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	setString(&cfg.Host, "DB_HOST")
	setInt(&cfg.Port, "DB_PORT")
	setString(&cfg.User, "DB_USER")
	setString(&cfg.Password, "DB_PASSWORD")
	setString(&cfg.Name, "DB_NAME")
	setString(&cfg.SSLMode, "DB_SSLMODE")
	setInt(&cfg.MaxConns, "DB_MAX_CONNS")
}

func OverrideMQFromEnv(cfg *MQConfig) {
	setString(&cfg.URL, "MQ_URL")
	setString(&cfg.Exchange, "MQ_EXCHANGE")
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	setString(&cfg.Addr, "REDIS_ADDR")
	setString(&cfg.Password, "REDIS_PASSWORD")
	setInt(&cfg.DB, "REDIS_DB")
}

func OverrideJWTFromEnv(cfg *JWTConfig) {
	setString(&cfg.Secret, "JWT_SECRET")
	setInt(&cfg.TTLHours, "JWT_TTL_HOURS")
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	setString(&cfg.Port, "SERVER_PORT")
}

// OverrideStorageFromEnv 从环境变量覆盖存储配置
func OverrideStorageFromEnv(cfg *StorageConfig) {
	setString(&cfg.Backend, "STORAGE_BACKEND")
	setString(&cfg.Prefix, "STORAGE_PREFIX")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
}

func OverrideLogFromEnv(cfg *LogConfig) {
	setString(&cfg.Level, "LOG_LEVEL")
}
