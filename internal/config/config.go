package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"gopkg.in/yaml.v3"
)

// #region process-config
// Config is the process configuration read from the environment. CLI flags
// override these values.
type Config struct {
	DBPath           string `env:"KERNEL_DB" envDefault:"kernel.db"`
	Addr             string `env:"KERNEL_ADDR" envDefault:"127.0.0.1:7401"`
	CoefficientsPath string `env:"KERNEL_COEFFICIENTS"`
	LogLevel         string `env:"KERNEL_LOG_LEVEL" envDefault:"info"`
	LogDevelopment   bool   `env:"KERNEL_LOG_DEV"`
	OTelEndpoint     string `env:"KERNEL_OTEL_ENDPOINT"`
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
// #endregion process-config

// #region coefficients-file
// coefficientsFile is the on-disk bundle. Version is informational.
type coefficientsFile struct {
	Version      string              `yaml:"version,omitempty"`
	Coefficients engine.Coefficients `yaml:"coefficients"`
}

// LoadCoefficients reads a coefficient bundle. An empty path yields the
// defaults. Fields missing from the file keep their default values.
func LoadCoefficients(path string) (engine.Coefficients, error) {
	if path == "" {
		return engine.DefaultCoefficients(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Coefficients{}, fmt.Errorf("read coefficients: %w", err)
	}
	file := coefficientsFile{Coefficients: engine.DefaultCoefficients()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return engine.Coefficients{}, fmt.Errorf("parse coefficients %s: %w", path, err)
	}
	if err := file.Coefficients.Validate(); err != nil {
		return engine.Coefficients{}, fmt.Errorf("coefficients %s: %w", path, err)
	}
	return file.Coefficients, nil
}

// SaveCoefficients writes c to path, replacing any existing file atomically.
func SaveCoefficients(path, version string, c engine.Coefficients) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	data, err := yaml.Marshal(coefficientsFile{Version: version, Coefficients: c})
	if err != nil {
		return fmt.Errorf("marshal coefficients: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".coefficients-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write coefficients: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close coefficients: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename coefficients: %w", err)
	}
	return nil
}
// #endregion coefficients-file
