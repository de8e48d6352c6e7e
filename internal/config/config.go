// Package config loads the process configuration of the seerbot binary.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server and REPL need to assemble a bot.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	NLP      NLPConfig      `mapstructure:"nlp"`
	Fixtures string         `mapstructure:"fixtures"`

	// MaxUtterance bounds the bytes of one inbound message.
	MaxUtterance int `mapstructure:"max_utterance"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	AdminToken      string        `mapstructure:"admin_token"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type StorageConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type SessionConfig struct {
	// Driver is one of memory, file, redis or storage. Storage keeps sessions
	// in the database selected by storage.driver.
	Driver string        `mapstructure:"driver"`
	Dir    string        `mapstructure:"dir"`
	TTL    time.Duration `mapstructure:"ttl"`
	Prefix string        `mapstructure:"prefix"`

	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	MaskPatterns  []string `mapstructure:"mask_patterns"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type CacheConfig struct {
	MaxEntries      int           `mapstructure:"max_entries"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	BuildTimeout    time.Duration `mapstructure:"build_timeout"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type NLPConfig struct {
	// ModelDir resolves relative model references.
	ModelDir string `mapstructure:"model_dir"`
}

var (
	storageDrivers = []string{"memory", "sqlite", "postgres"}
	sessionDrivers = []string{"memory", "file", "redis", "storage"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.admin_token", "")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.rate_burst", 10)
	v.SetDefault("http.secure_cookies", false)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", ".seerbot/seerbot.db")
	v.SetDefault("database.url", "")
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.dir", ".seerbot/sessions")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.prefix", "seerbot:session:")
	v.SetDefault("session.encryption_key", "")
	v.SetDefault("session.fallback_keys", []string{})
	v.SetDefault("session.mask_patterns", []string{})
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.idle_timeout", 30*time.Minute)
	v.SetDefault("cache.build_timeout", 30*time.Second)
	v.SetDefault("cache.janitor_interval", time.Minute)
	v.SetDefault("nlp.model_dir", ".")
	v.SetDefault("fixtures", "")
	v.SetDefault("max_utterance", 4096)
}

// Load reads seerbot.yaml from path, or from . and ./configs when path is empty,
// then applies SEERBOT_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("seerbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("SEERBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Deploy platforms set these without the prefix.
	_ = v.BindEnv("database.url", "SEERBOT_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.url", "SEERBOT_REDIS_URL", "REDIS_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(storageDrivers, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver %q must be one of %s", c.Storage.Driver, strings.Join(storageDrivers, ", ")))
	}
	if c.Storage.Driver == "postgres" && c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required for the postgres driver"))
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
	}
	if !slices.Contains(sessionDrivers, c.Session.Driver) {
		errs = append(errs, fmt.Errorf("session.driver %q must be one of %s", c.Session.Driver, strings.Join(sessionDrivers, ", ")))
	}
	if c.Session.Driver == "redis" && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required for the redis session driver"))
	}
	if c.Session.Driver == "file" && c.Session.Dir == "" {
		errs = append(errs, errors.New("session.dir is required for the file session driver"))
	}
	if _, _, err := c.Session.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.RateLimit < 0 || c.HTTP.RateBurst < 0 {
		errs = append(errs, errors.New("http.rate_limit and http.rate_burst must not be negative"))
	}
	if c.MaxUtterance < 0 {
		errs = append(errs, errors.New("max_utterance must not be negative"))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}
	return errors.Join(errs...)
}

// Keys decodes the session encryption keys. A nil active key means encryption is off.
func (s SessionConfig) Keys() (active []byte, fallbacks [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey("session.encryption_key", s.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("session.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func decodeKey(name, encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}
