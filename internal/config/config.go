// Package config 从 .env 和环境变量加载运行配置, 命令行参数在 main 里覆盖
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultEnvFile = ".env"

const (
	EnvOutput        = "NETSCOPE_OUTPUT"
	EnvAllPorts      = "NETSCOPE_ALL_PORTS"
	EnvMaxHosts      = "NETSCOPE_MAX_HOSTS"
	EnvServicesFile  = "NETSCOPE_SERVICES_FILE"
	EnvLogLevel      = "NETSCOPE_LOG_LEVEL"
	EnvNoColor       = "NETSCOPE_NO_COLOR"
	EnvMongoDatabase = "NETSCOPE_MONGO_DATABASE"
)

type Config struct {
	Output        string
	AllPorts      bool
	MaxHosts      uint64 // 0 不限制
	ServicesFile  string
	LogLevel      string
	NoColor       bool
	MongoDatabase string
}

func Default() *Config {
	return &Config{
		Output:        "scan_results.json",
		LogLevel:      "warn",
		MongoDatabase: "netscope",
	}
}

// Load 读取 envFile (不存在则跳过), 再读环境变量
// 已经设置的环境变量优先于 .env 里的同名项
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()
	if v, ok := lookup(EnvOutput); ok {
		cfg.Output = v
	}
	if v, ok := lookup(EnvServicesFile); ok {
		cfg.ServicesFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvMongoDatabase); ok {
		cfg.MongoDatabase = v
	}

	var err error
	if cfg.AllPorts, err = boolEnv(EnvAllPorts, cfg.AllPorts); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = boolEnv(EnvNoColor, cfg.NoColor); err != nil {
		return nil, err
	}
	if v, ok := lookup(EnvMaxHosts); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s=%q is not a non-negative integer", EnvMaxHosts, v)
		}
		cfg.MaxHosts = n
	}
	// NO_COLOR 约定 https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.NoColor = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 命令行覆盖之后也要再调用一次
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output destination is empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q (debug, info, warn, error)", c.LogLevel)
	}
	if c.MongoDatabase == "" {
		return errors.New("mongo database name is empty")
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s=%q is not a boolean", key, v)
	}
	return b, nil
}
