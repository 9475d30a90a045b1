// Package config loads service settings: defaults, then an optional YAML
// file, then environment overrides. Command-line flags are applied by the
// commands on top of the loaded value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/fpang/noteclean/internal/archive"
	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/filehandler"
	"github.com/fpang/noteclean/internal/metrics"
)

// Config holds all settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Extract ExtractConfig `yaml:"extract"`
	Batch   BatchConfig   `yaml:"batch"`
	Archive ArchiveConfig `yaml:"archive"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

type GeminiConfig struct {
	Model string `yaml:"model"`
	// RequestTimeout bounds each edit call. 0 disables the timeout.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ExtractConfig struct {
	MaxDimension int     `yaml:"max_dimension"`
	PDFDPI       float64 `yaml:"pdf_dpi"`
	JPEGQuality  int     `yaml:"jpeg_quality"`
}

type BatchConfig struct {
	// MaxConcurrent caps simultaneous edits. 0 means unlimited.
	MaxConcurrent int `yaml:"max_concurrent"`
}

type ArchiveConfig struct {
	Method string `yaml:"method"` // deflate, zstd or store
	Folder string `yaml:"folder"`
}

type StorageConfig struct {
	S3Bucket   string        `yaml:"s3_bucket"`
	S3Prefix   string        `yaml:"s3_prefix"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
	Region     string        `yaml:"region"`
}

type MetricsConfig struct {
	EMF       bool   `yaml:"emf"`
	Namespace string `yaml:"namespace"`
}

// Load reads path (if non-empty) over the defaults and applies environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		log.Debug().Str("path", path).Msg("Config file loaded")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxUploadBytes: 64 << 20,
		},
		Gemini: GeminiConfig{
			Model: editor.DefaultModelName,
		},
		Extract: ExtractConfig{
			MaxDimension: filehandler.DefaultMaxDimension,
			PDFDPI:       filehandler.DefaultPDFDPI,
			JPEGQuality:  filehandler.DefaultJPEGQuality,
		},
		Archive: ArchiveConfig{
			Method: archive.MethodDeflate,
			Folder: archive.DefaultFolder,
		},
		Storage: StorageConfig{
			S3Prefix:   "exports",
			PresignTTL: time.Hour,
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("gemini model must not be empty")
	}
	if c.Gemini.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.Extract.MaxDimension <= 0 {
		return fmt.Errorf("max_dimension must be positive")
	}
	if c.Extract.PDFDPI <= 0 {
		return fmt.Errorf("pdf_dpi must be positive")
	}
	if c.Extract.JPEGQuality < 1 || c.Extract.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100")
	}
	if c.Batch.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative")
	}
	if err := archive.ValidateMethod(c.Archive.Method); err != nil {
		return err
	}
	if c.Storage.PresignTTL <= 0 {
		return fmt.Errorf("presign_ttl must be positive")
	}
	return nil
}

// ExportEnabled reports whether archives can be exported to S3.
func (c *Config) ExportEnabled() bool {
	return c.Storage.S3Bucket != ""
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOTECLEAN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid NOTECLEAN_PORT")
		}
	}

	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}

	if v := os.Getenv("NOTECLEAN_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gemini.RequestTimeout = d
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid NOTECLEAN_REQUEST_TIMEOUT")
		}
	}

	if v := os.Getenv("NOTECLEAN_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.MaxConcurrent = n
		} else {
			log.Warn().Str("value", v).Msg("Ignoring invalid NOTECLEAN_MAX_CONCURRENT")
		}
	}

	if v := os.Getenv("NOTECLEAN_ARCHIVE_METHOD"); v != "" {
		cfg.Archive.Method = v
	}

	if v := os.Getenv("NOTECLEAN_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}

	if v := os.Getenv("NOTECLEAN_S3_PREFIX"); v != "" {
		cfg.Storage.S3Prefix = v
	}

	if v := os.Getenv("AWS_REGION"); v != "" && cfg.Storage.Region == "" {
		cfg.Storage.Region = v
	}

	if v := os.Getenv("NOTECLEAN_EMF"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.EMF = b
		}
	}
}
