// Package config loads the portal configuration from YAML and the environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DatabaseURLEnv names the environment variable that points at the live store.
const DatabaseURLEnv = "DATABASE_URL"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Backup   BackupConfig   `yaml:"backup"`
	Offsite  OffsiteConfig  `yaml:"offsite"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	PathPrefix   string `yaml:"path_prefix"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// DatabaseConfig identifies the live store. URL accepts a plain path or a
// connection string such as "file:./data/portal.db".
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type BackupConfig struct {
	Dir string `yaml:"dir"`
	// BestEffortSafetyCopy lets a restore continue when the pre-restore copy
	// of the live store could not be written.
	BestEffortSafetyCopy bool `yaml:"best_effort_safety_copy"`
}

// OffsiteConfig describes an optional S3-compatible bucket that receives a
// copy of every completed backup.
type OffsiteConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	PathPrefix string `yaml:"path_prefix"`
	// Region skips the bucket location lookup when set.
	Region string `yaml:"region"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Enabled reports whether enough settings are present to reach a bucket.
func (o OffsiteConfig) Enabled() bool {
	return o.Endpoint != "" && o.Bucket != ""
}

// Path returns the filesystem path of the live store, or "" when unset.
func (d DatabaseConfig) Path() string {
	p := strings.TrimSpace(d.URL)
	p = strings.TrimPrefix(p, "file://")
	p = strings.TrimPrefix(p, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// CatalogPath is where backup records are kept.
func (b BackupConfig) CatalogPath() string {
	return filepath.Join(b.Dir, "catalog.db")
}

// LockPath is the file used to serialise backup and restore runs.
func (b BackupConfig) LockPath() string {
	return filepath.Join(b.Dir, ".lock")
}

// Load reads the YAML file at path (skipped when path is empty), then an
// optional .env next to the working directory, then DATABASE_URL.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(DatabaseURLEnv); ok && strings.TrimSpace(v) != "" {
		cfg.Database.URL = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.PathPrefix == "/" {
		cfg.Server.PathPrefix = ""
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "./backups"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
