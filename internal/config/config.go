// Package config loads runtime settings from YAML or TOML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
)

const envPrefix = "ALCHEMY_"

var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrInvalidConfig     = errors.New("config: invalid configuration")
)

// Storage drivers
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

type Config struct {
	Log     LogConfig     `yaml:"log" toml:"log"`
	Assets  AssetsConfig  `yaml:"assets" toml:"assets"`
	Audio   AudioConfig   `yaml:"audio" toml:"audio"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`

	// Encoding is "json" or "console".
	Encoding string `yaml:"encoding" toml:"encoding"`
}

type AssetsConfig struct {
	// Root is the directory asset paths are resolved against.
	Root string `yaml:"root" toml:"root"`

	Shards         int `yaml:"shards" toml:"shards"`
	PreloadWorkers int `yaml:"preload_workers" toml:"preload_workers"`
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate" toml:"sample_rate"`
}

type StorageConfig struct {
	Driver string      `yaml:"driver" toml:"driver"`
	Dir    string      `yaml:"dir" toml:"dir"`
	Redis  RedisConfig `yaml:"redis" toml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`

	// QUICAddr enables the QUIC listener when set.
	QUICAddr string `yaml:"quic_addr" toml:"quic_addr"`

	// Without CertFile and KeyFile QUIC uses a self-signed certificate.
	CertFile        string   `yaml:"cert_file" toml:"cert_file"`
	KeyFile         string   `yaml:"key_file" toml:"key_file"`
	MaxFrameSize    int      `yaml:"max_frame_size" toml:"max_frame_size"`
	RateLimit       int      `yaml:"rate_limit" toml:"rate_limit"`
	RateWindow      Duration `yaml:"rate_window" toml:"rate_window"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// AuthToken, when set, is required by the HTTP and websocket routes as a
	// bearer token or "token" query parameter.
	AuthToken string `yaml:"auth_token" toml:"auth_token"`
}

// Duration decodes from strings such as "1500ms" or "10s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Encoding: "json"},
		Assets: AssetsConfig{
			Root:           "assets",
			Shards:         16,
			PreloadWorkers: 4,
		},
		Audio:   AudioConfig{SampleRate: 44100},
		Storage: StorageConfig{Driver: DriverFile, Dir: "scenes", Redis: RedisConfig{Addr: "127.0.0.1:6379", Prefix: "alchemy:scene:"}},
		Server: ServerConfig{
			HTTPAddr:        "127.0.0.1:8080",
			MaxFrameSize:    16 << 20,
			RateLimit:       100,
			RateWindow:      Duration{time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
	}
}

// Load reads path over the defaults, choosing the decoder by extension, then
// applies environment overrides and validates the result. An empty path
// yields the defaults with overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err = decode(path, data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

// ApplyEnv overrides a few keys from ALCHEMY_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("ASSETS_ROOT", &c.Assets.Root)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_DIR", &c.Storage.Dir)
	str("REDIS_ADDR", &c.Storage.Redis.Addr)
	str("REDIS_PASSWORD", &c.Storage.Redis.Password)
	str("HTTP_ADDR", &c.Server.HTTPAddr)
	str("QUIC_ADDR", &c.Server.QUICAddr)
	str("AUTH_TOKEN", &c.Server.AuthToken)

	if v, ok := lookup(envPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sREDIS_DB: %v", ErrInvalidConfig, envPrefix, err)
		}
		c.Storage.Redis.DB = db
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		errs = append(errs, fmt.Errorf("log.encoding %q", c.Log.Encoding))
	}
	if c.Assets.Root == "" {
		errs = append(errs, errors.New("assets.root is empty"))
	}
	if c.Assets.Shards < 1 {
		errs = append(errs, fmt.Errorf("assets.shards %d < 1", c.Assets.Shards))
	}
	if c.Assets.PreloadWorkers < 1 {
		errs = append(errs, fmt.Errorf("assets.preload_workers %d < 1", c.Assets.PreloadWorkers))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d <= 0", c.Audio.SampleRate))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is empty"))
		}
	case DriverRedis:
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q", c.Storage.Driver))
	}
	if c.Server.HTTPAddr == "" {
		errs = append(errs, errors.New("server.http_addr is empty"))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert_file and server.key_file must be set together"))
	}
	if c.Server.MaxFrameSize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_frame_size %d <= 0", c.Server.MaxFrameSize))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit %d < 0", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, errors.New("server.rate_window must be positive"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
