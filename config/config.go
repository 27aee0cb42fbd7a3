package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig 서버 설정
type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	DBType             string        `mapstructure:"db_type"`
	DSN                string        `mapstructure:"dsn"`
	MediaDir           string        `mapstructure:"media_dir"`
	MaxUploadMB        int64         `mapstructure:"max_upload_mb"`
	RequireSignedMedia bool          `mapstructure:"require_signed_media"`
	MediaSecret        string        `mapstructure:"media_secret"`
	MediaTokenTTL      time.Duration `mapstructure:"media_token_ttl"`
	OrphanRetention    time.Duration `mapstructure:"orphan_retention"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	Timezone           string        `mapstructure:"timezone"`
}

// ClientConfig is used by plmctl and the workbench.
type ClientConfig struct {
	Server          string        `mapstructure:"server"`
	Cache           string        `mapstructure:"cache"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ChunkSize       int           `mapstructure:"chunk_size"`
	QuotaBytes      int           `mapstructure:"quota_bytes"`
	ValueQuotaBytes int           `mapstructure:"value_quota_bytes"`
}

// LogConfig 로거 설정
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int64  `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Color      bool   `mapstructure:"color"`
	Caller     bool   `mapstructure:"caller"`
}

// Config holds all runtime configuration.
// Values are populated from miniplm.yaml, MINIPLM_* env vars, and CLI flags.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Log    LogConfig    `mapstructure:"log"`
}

// EnvPrefix 환경 변수 접두사
const EnvPrefix = "MINIPLM"

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.db_type", "sqlite")
	viper.SetDefault("server.dsn", "./miniplm.db")
	viper.SetDefault("server.media_dir", "./data/media")
	viper.SetDefault("server.max_upload_mb", 100)
	viper.SetDefault("server.require_signed_media", false)
	viper.SetDefault("server.media_secret", "")
	viper.SetDefault("server.media_token_ttl", "5m")
	viper.SetDefault("server.orphan_retention", "168h")
	viper.SetDefault("server.cleanup_interval", "1h")
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("server.timezone", "Asia/Seoul")

	viper.SetDefault("client.server", "http://localhost:8080")
	viper.SetDefault("client.cache", "./miniplm-cache.db")
	viper.SetDefault("client.timeout", "0s")
	viper.SetDefault("client.chunk_size", 5)
	viper.SetDefault("client.quota_bytes", 5*1024*1024)
	viper.SetDefault("client.value_quota_bytes", 0)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.dir", "./logs")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_age_days", 7)
	viper.SetDefault("log.color", true)
	viper.SetDefault("log.caller", false)
}

// Init points viper at cfgFile (or miniplm.{yaml,toml,json} in . and $HOME) and enables
// MINIPLM_ environment overrides. A missing default config file is not an error.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("miniplm")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 설정 값 검증
func (c Config) Validate() error {
	switch c.Server.DBType {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("server.db_type must be sqlite or mysql, got %q", c.Server.DBType)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	if c.Client.ChunkSize <= 0 {
		return fmt.Errorf("client.chunk_size must be positive")
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative")
	}
	return nil
}
