// Package config loads the settings of the xsg tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ginty-lab/ephus/internal/xsg"
)

// DefaultConfigPath is where the command line tool looks for a config file
// when --config is not given.
const DefaultConfigPath = "xsg.yaml"

// Config is the tool configuration. Every field is optional; the Get*
// methods supply defaults for fields that are not set, so partial files
// are safe.
type Config struct {
	// Record building
	DefaultChannelLabel *string `yaml:"default_channel_label,omitempty" json:"default_channel_label,omitempty"`
	EphysStimulusLabel  *string `yaml:"ephys_stimulus_label,omitempty" json:"ephys_stimulus_label,omitempty"`
	LiteralPulseType    *string `yaml:"literal_pulse_type,omitempty" json:"literal_pulse_type,omitempty"`

	// Parallel parse and merge
	Workers *int `yaml:"workers,omitempty" json:"workers,omitempty"`

	// Metadata catalog
	CatalogPath *string `yaml:"catalog_path,omitempty" json:"catalog_path,omitempty"`

	// Plot size in inches
	PlotWidthIn  *float64 `yaml:"plot_width_in,omitempty" json:"plot_width_in,omitempty"`
	PlotHeightIn *float64 `yaml:"plot_height_in,omitempty" json:"plot_height_in,omitempty"`

	LogLevel *string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	// EpochLabels names experimental conditions in summaries.
	EpochLabels map[int]string `yaml:"epoch_labels,omitempty" json:"epoch_labels,omitempty"`
}

// Load reads a YAML or JSON config file. The file must have a .yaml, .yml
// or .json extension and be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("config file must have .yaml, .yml or .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates config data. JSON is accepted as YAML.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	for name, v := range map[string]*string{
		"default_channel_label": c.DefaultChannelLabel,
		"ephys_stimulus_label":  c.EphysStimulusLabel,
		"literal_pulse_type":    c.LiteralPulseType,
		"catalog_path":          c.CatalogPath,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.PlotWidthIn != nil && *c.PlotWidthIn <= 0 {
		return fmt.Errorf("plot_width_in must be positive, got %g", *c.PlotWidthIn)
	}
	if c.PlotHeightIn != nil && *c.PlotHeightIn <= 0 {
		return fmt.Errorf("plot_height_in must be positive, got %g", *c.PlotHeightIn)
	}
	if c.LogLevel != nil {
		if _, err := zapcore.ParseLevel(*c.LogLevel); err != nil {
			return fmt.Errorf("invalid log_level %q: %w", *c.LogLevel, err)
		}
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// GetDefaultChannelLabel returns default_channel_label or "chan0".
func (c *Config) GetDefaultChannelLabel() string {
	return stringOr(c.DefaultChannelLabel, xsg.DefaultOptions().DefaultChannelLabel)
}

// GetEphysStimulusLabel returns ephys_stimulus_label or "chan0".
func (c *Config) GetEphysStimulusLabel() string {
	return stringOr(c.EphysStimulusLabel, xsg.DefaultOptions().EphysStimulusLabel)
}

// GetLiteralPulseType returns literal_pulse_type or "Literal".
func (c *Config) GetLiteralPulseType() string {
	return stringOr(c.LiteralPulseType, xsg.DefaultOptions().LiteralPulseType)
}

// GetWorkers returns workers or 4.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetCatalogPath returns catalog_path or "xsg_catalog.db".
func (c *Config) GetCatalogPath() string {
	return stringOr(c.CatalogPath, "xsg_catalog.db")
}

// GetPlotSize returns the plot width and height in inches, 8 by 4 unless set.
func (c *Config) GetPlotSize() (width, height float64) {
	width, height = 8, 4
	if c.PlotWidthIn != nil {
		width = *c.PlotWidthIn
	}
	if c.PlotHeightIn != nil {
		height = *c.PlotHeightIn
	}
	return width, height
}

// GetLogLevel returns log_level or "info".
func (c *Config) GetLogLevel() string {
	return stringOr(c.LogLevel, "info")
}

// BuildOptions returns the record builder options.
func (c *Config) BuildOptions() xsg.Options {
	return xsg.Options{
		DefaultChannelLabel: c.GetDefaultChannelLabel(),
		EphysStimulusLabel:  c.GetEphysStimulusLabel(),
		LiteralPulseType:    c.GetLiteralPulseType(),
	}
}
