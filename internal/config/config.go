//nolint:lll
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/pogo-pad/internal/overlay"
	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/store"
)

// Config represents the complete configuration for pogo-pad. It is loaded
// from configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Recognition engine and region extraction
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition" json:"recognition"`

	// Region index behaviour
	Index IndexConfig `mapstructure:"index" yaml:"index" json:"index"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Object storage for s3:// save targets
	Storage StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`
}

// RecognitionConfig selects and tunes the recognition engine.
type RecognitionConfig struct {
	Engine        string   `mapstructure:"engine" yaml:"engine" json:"engine"`
	Languages     []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	ServerURL     string   `mapstructure:"server_url" yaml:"server_url" json:"server_url"`
	TimeoutSec    int      `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	PDFPage       int      `mapstructure:"pdf_page" yaml:"pdf_page" json:"pdf_page"`
	Level         string   `mapstructure:"level" yaml:"level" json:"level"`
	MinConfidence float64  `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	RectMode      string   `mapstructure:"rect_mode" yaml:"rect_mode" json:"rect_mode"`
}

// IndexConfig contains region index settings.
type IndexConfig struct {
	DuplicatePolicy string `mapstructure:"duplicate_policy" yaml:"duplicate_policy" json:"duplicate_policy"`
}

// OutputConfig contains output settings.
type OutputConfig struct {
	Dir             string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Format          string `mapstructure:"format" yaml:"format" json:"format"`
	OverlayBoxColor string `mapstructure:"overlay_box_color" yaml:"overlay_box_color" json:"overlay_box_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool   `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
}

// StorageConfig contains persistence backends beyond the local filesystem.
type StorageConfig struct {
	Minio MinioConfig `mapstructure:"minio" yaml:"minio" json:"minio"`
}

// MinioConfig contains S3-compatible object store settings.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl" json:"use_ssl"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Recognition: RecognitionConfig{
			Engine:        recognition.EngineSidecar,
			Languages:     []string{"ja", "en"},
			ServerURL:     "http://localhost:8080",
			TimeoutSec:    60,
			PDFPage:       1,
			Level:         "word",
			MinConfidence: 0.0,
			RectMode:      "corners",
		},
		Index: IndexConfig{
			DuplicatePolicy: "last",
		},
		Output: OutputConfig{
			Format:          "text",
			OverlayBoxColor: "#00FF00",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8090,
			CORSOrigin:      "*",
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validEngines := []string{recognition.EngineSidecar, recognition.EngineRemote, recognition.EnginePDFText, recognition.EngineTesseract}
	if !slices.Contains(validEngines, strings.ToLower(c.Recognition.Engine)) {
		return fmt.Errorf("invalid recognition engine: %s (must be one of: %s)", c.Recognition.Engine, strings.Join(validEngines, ", "))
	}
	if _, err := recognition.ParseLanguages(c.Recognition.Languages); err != nil {
		return fmt.Errorf("invalid recognition.languages: %w", err)
	}
	if err := validateThreshold(c.Recognition.MinConfidence, "recognition.min_confidence"); err != nil {
		return err
	}
	if _, err := regions.ParseRectMode(c.Recognition.RectMode); err != nil {
		return err
	}
	if c.Recognition.PDFPage < 1 {
		return fmt.Errorf("invalid recognition.pdf_page: %d (must be positive)", c.Recognition.PDFPage)
	}
	if c.Recognition.TimeoutSec <= 0 {
		return fmt.Errorf("invalid recognition.timeout_sec: %d (must be positive)", c.Recognition.TimeoutSec)
	}
	if _, err := regions.ParseDuplicatePolicy(c.Index.DuplicatePolicy); err != nil {
		return err
	}

	validFormats := []string{"text", "json", "yaml"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Output.OverlayBoxColor != "" {
		if _, err := overlay.ParseHexColor(c.Output.OverlayBoxColor); err != nil {
			return fmt.Errorf("invalid output.overlay_box_color: %w", err)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must be positive)", c.Server.ShutdownTimeout)
	}

	if m := c.Storage.Minio; m.Endpoint != "" && m.Bucket == "" {
		return errors.New("storage.minio.bucket is required when an endpoint is set")
	}
	return nil
}

// ToEngineOptions converts the recognition settings into engine options.
func (c *Config) ToEngineOptions() (recognition.Options, error) {
	langs, err := recognition.ParseLanguages(c.Recognition.Languages)
	if err != nil {
		return recognition.Options{}, err
	}
	return recognition.Options{
		Engine:    c.Recognition.Engine,
		Languages: langs,
		ServerURL: c.Recognition.ServerURL,
		Timeout:   time.Duration(c.Recognition.TimeoutSec) * time.Second,
		PDFPage:   c.Recognition.PDFPage,
		Level:     c.Recognition.Level,
	}, nil
}

// ToAdapterOptions converts the region extraction settings.
func (c *Config) ToAdapterOptions() (recognition.AdapterOptions, error) {
	mode, err := regions.ParseRectMode(c.Recognition.RectMode)
	if err != nil {
		return recognition.AdapterOptions{}, err
	}
	return recognition.AdapterOptions{RectMode: mode, MinConfidence: c.Recognition.MinConfidence}, nil
}

// DuplicatePolicy returns the parsed index duplicate policy.
func (c *Config) DuplicatePolicy() (regions.DuplicatePolicy, error) {
	return regions.ParseDuplicatePolicy(c.Index.DuplicatePolicy)
}

// MinioEnabled reports whether an object store is configured.
func (c *Config) MinioEnabled() bool { return c.Storage.Minio.Endpoint != "" }

// ToMinioConfig converts the object store settings.
func (c *Config) ToMinioConfig() store.MinioConfig {
	m := c.Storage.Minio
	return store.MinioConfig{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Bucket:    m.Bucket,
		Prefix:    m.Prefix,
		UseSSL:    m.UseSSL,
	}
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
