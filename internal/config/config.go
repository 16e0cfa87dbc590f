// Package config loads lotscope settings from defaults, an optional YAML file
// and LOTSCOPE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "LOTSCOPE"

// FileEnvVar names the variable holding the YAML config file path.
const FileEnvVar = "LOTSCOPE_CONFIG"

// Data sources
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// DefaultErrorLotFile is the error lot list file name inside the data directory.
const DefaultErrorLotFile = "Error Lot list.csv"

// Config represents the complete application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" envconfig:"DATA"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Storage StorageConfig `yaml:"storage" envconfig:"STORAGE"`
}

// DataConfig locates the input files.
type DataConfig struct {
	BaseDir         string   `yaml:"base_dir" split_words:"true" validate:"required"`
	ErrorLotFile    string   `yaml:"error_lot_file" split_words:"true" validate:"required"`
	RequiredColumns []string `yaml:"required_columns" split_words:"true" validate:"min=1,dive,required"`
	// Source selects whether queries read the CSV files directly or the
	// last imported SQLite snapshot.
	Source string `yaml:"source" split_words:"true" validate:"oneof=csv sqlite"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" split_words:"true" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
	AssetsHost      string        `yaml:"assets_host" split_words:"true"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=json text"`
}

// StorageConfig locates the SQLite snapshot.
type StorageConfig struct {
	Path string `yaml:"path" split_words:"true" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			BaseDir:         "data",
			ErrorLotFile:    DefaultErrorLotFile,
			RequiredColumns: []string{"Temp", "Current", "Process"},
			Source:          SourceCSV,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Path: "lotscope.db",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// LOTSCOPE_CONFIG if set, and then environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnvVar))
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave the field untouched. Leaf fields carry no
	// envconfig tag: a tag also matches the bare variable, e.g. PATH.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	c.Data.Source = strings.ToLower(strings.TrimSpace(c.Data.Source))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	for i, col := range c.Data.RequiredColumns {
		c.Data.RequiredColumns[i] = strings.TrimSpace(col)
	}
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, formatFieldError(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ErrorLotPath returns the error lot file path. Relative names resolve
// against the data directory.
func (c *Config) ErrorLotPath() string {
	if filepath.IsAbs(c.Data.ErrorLotFile) {
		return c.Data.ErrorLotFile
	}
	return filepath.Join(c.Data.BaseDir, c.Data.ErrorLotFile)
}

// SensorDir returns the directory scanned for sensor files.
func (c *Config) SensorDir() string {
	return c.Data.BaseDir
}
