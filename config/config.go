// Package config loads ocrdesk settings from a YAML file and OCRDESK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL       = "http://localhost:5000/api"
	DefaultPollInterval = 2 * time.Second
	DefaultHTTPTimeout  = 60 * time.Second

	BackendLocal = "local"
	BackendMinIO = "minio"

	envPrefix = "OCRDESK_"
)

type Config struct {
	APIURL       string        `yaml:"api_url"`
	StateDir     string        `yaml:"state_dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// BatchSize overrides the persisted batch size when positive.
	BatchSize   int           `yaml:"batch_size"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	Artifacts   Artifacts     `yaml:"artifacts"`
}

type Artifacts struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	MinIO   MinIO  `yaml:"minio"`
}

type MinIO struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:       DefaultAPIURL,
		StateDir:     defaultStateDir(),
		PollInterval: DefaultPollInterval,
		HTTPTimeout:  DefaultHTTPTimeout,
		LogLevel:     "info",
		LogFormat:    "text",
		Artifacts: Artifacts{
			Backend: BackendLocal,
			Dir:     "downloads",
		},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ocrdesk")
	}
	return ".ocrdesk"
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(defaultStateDir(), "config.yaml")
}

// Load reads path over the defaults and then applies the environment. An
// empty path falls back to DefaultPath, which may be absent.
func Load(path string) (Config, error) {
	cfg := Default()
	required := path != ""
	if !required {
		path = DefaultPath()
	}
	if err := mergeFile(&cfg, path, required); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("config file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("config path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from OCRDESK_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("API_URL"); ok {
		c.APIURL = v
	}
	if v, ok := get("STATE_DIR"); ok {
		c.StateDir = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := get("POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPOLL_INTERVAL: %w", envPrefix, err)
		}
		c.PollInterval = d
	}
	if v, ok := get("HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sHTTP_TIMEOUT: %w", envPrefix, err)
		}
		c.HTTPTimeout = d
	}
	if v, ok := get("BATCH_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sBATCH_SIZE: %w", envPrefix, err)
		}
		c.BatchSize = n
	}
	if v, ok := get("ARTIFACTS_BACKEND"); ok {
		c.Artifacts.Backend = v
	}
	if v, ok := get("ARTIFACTS_DIR"); ok {
		c.Artifacts.Dir = v
	}
	if v, ok := get("MINIO_ENDPOINT"); ok {
		c.Artifacts.MinIO.Endpoint = v
	}
	if v, ok := get("MINIO_ACCESS_KEY"); ok {
		c.Artifacts.MinIO.AccessKey = v
	}
	if v, ok := get("MINIO_SECRET_KEY"); ok {
		c.Artifacts.MinIO.SecretKey = v
	}
	if v, ok := get("MINIO_BUCKET"); ok {
		c.Artifacts.MinIO.Bucket = v
	}
	if v, ok := get("MINIO_REGION"); ok {
		c.Artifacts.MinIO.Region = v
	}
	if v, ok := get("MINIO_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMINIO_USE_SSL: %w", envPrefix, err)
		}
		c.Artifacts.MinIO.UseSSL = b
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIURL) == "" {
		errs = append(errs, errors.New("api_url is empty"))
	}
	if strings.TrimSpace(c.StateDir) == "" {
		errs = append(errs, errors.New("state_dir is empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	switch c.Artifacts.Backend {
	case BackendLocal:
		if c.Artifacts.Dir == "" {
			errs = append(errs, errors.New("artifacts.dir is empty"))
		}
	case BackendMinIO:
		m := c.Artifacts.MinIO
		if m.Endpoint == "" || m.Bucket == "" {
			errs = append(errs, errors.New("artifacts.minio needs endpoint and bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("artifacts.backend must be %s or %s, got %q", BackendLocal, BackendMinIO, c.Artifacts.Backend))
	}
	return errors.Join(errs...)
}
