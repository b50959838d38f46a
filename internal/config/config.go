package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/scene-narrator/internal/utils"
	"github.com/menta2k/scene-narrator/pkg/narration"
	"github.com/menta2k/scene-narrator/pkg/pregen"
	"github.com/menta2k/scene-narrator/pkg/ruler"
	"github.com/menta2k/scene-narrator/pkg/vision"
)

// Config holds the application configuration
type Config struct {
	Locator   vision.LocatorConfig `json:"locator" yaml:"locator" toml:"locator"`
	Ruler     RulerConfig          `json:"ruler" yaml:"ruler" toml:"ruler"`
	Labels    narration.Labels     `json:"labels" yaml:"labels" toml:"labels"`
	Detection DetectionConfig      `json:"detection" yaml:"detection" toml:"detection"`
	Pregen    PregenConfig         `json:"pregen" yaml:"pregen" toml:"pregen"`
	Log       LogConfig            `json:"log" yaml:"log" toml:"log"`
}

// RulerConfig points at the training dataset and the fitted table
type RulerConfig struct {
	Dataset     string         `json:"dataset" yaml:"dataset" toml:"dataset"`
	Table       string         `json:"table" yaml:"table" toml:"table"`
	ClassLabels []string       `json:"class_labels" yaml:"class_labels" toml:"class_labels"`
	Keys        ruler.KeyNames `json:"keys" yaml:"keys" toml:"keys"`
}

// DetectionConfig holds configuration for the vision model backend
type DetectionConfig struct {
	Backend       string  `json:"backend" yaml:"backend" toml:"backend"`
	Host          string  `json:"host" yaml:"host" toml:"host"`
	Model         string  `json:"model" yaml:"model" toml:"model"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" toml:"min_confidence"`
	MaxImageSize  int     `json:"max_image_size" yaml:"max_image_size" toml:"max_image_size"`
	ImageFormat   string  `json:"image_format" yaml:"image_format" toml:"image_format"`
	Timeout       string  `json:"timeout" yaml:"timeout" toml:"timeout"`
}

// PregenConfig mirrors pregen.Config with durations written as strings
type PregenConfig struct {
	Dir              string   `json:"dir" yaml:"dir" toml:"dir"`
	MaxObjPerSegment int      `json:"max_obj_per_segment" yaml:"max_obj_per_segment" toml:"max_obj_per_segment"`
	RankLabels       []string `json:"rank_labels" yaml:"rank_labels" toml:"rank_labels"`
	Language         string   `json:"language" yaml:"language" toml:"language"`
	Extension        string   `json:"extension" yaml:"extension" toml:"extension"`
	Workers          int      `json:"workers" yaml:"workers" toml:"workers"`
	MaxRetries       int      `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	RetryDelay       string   `json:"retry_delay" yaml:"retry_delay" toml:"retry_delay"`
	SkipExisting     bool     `json:"skip_existing" yaml:"skip_existing" toml:"skip_existing"`
	TTSBaseURL       string   `json:"tts_base_url" yaml:"tts_base_url" toml:"tts_base_url"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	pg := pregen.DefaultConfig()
	return &Config{
		Locator: vision.DefaultConfig(),
		Ruler: RulerConfig{
			Dataset:     "dataset.yaml",
			Table:       "ruler.yaml",
			ClassLabels: []string{"person", "bike", "car"},
			Keys:        ruler.DefaultKeyNames(),
		},
		Labels: narration.DefaultLabels(),
		Detection: DetectionConfig{
			Backend:       "ollama",
			Host:          "http://localhost:11434",
			Model:         "qwen2.5vl:7b",
			MinConfidence: 0.3,
			MaxImageSize:  1024,
			ImageFormat:   "jpg",
			Timeout:       "5m",
		},
		Pregen: PregenConfig{
			Dir:              pg.Dir,
			MaxObjPerSegment: pg.MaxObjPerSegment,
			RankLabels:       pg.RankLabels,
			Language:         pg.Language,
			Extension:        pg.Extension,
			Workers:          pg.Workers,
			MaxRetries:       pg.MaxRetries,
			RetryDelay:       pg.RetryDelay.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromFile loads configuration from a JSON, YAML or TOML file chosen by
// extension. Missing fields keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch utils.GetFileExtension(filename) {
	case "json":
		err = json.Unmarshal(data, config)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, config)
	case "toml":
		err = toml.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration in the format implied by the file extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch utils.GetFileExtension(filename) {
	case "json":
		data, err = json.MarshalIndent(c, "", "  ")
	case "yaml", "yml":
		data, err = yaml.Marshal(c)
	case "toml":
		data, err = toml.Marshal(c)
	default:
		return fmt.Errorf("unsupported config format: %s", filepath.Ext(filename))
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Locator.Validate(); err != nil {
		return fmt.Errorf("locator: %w", err)
	}

	if len(c.Ruler.ClassLabels) == 0 {
		return fmt.Errorf("ruler.class_labels cannot be empty")
	}
	if err := narration.ValidateVocabulary(c.Ruler.ClassLabels); err != nil {
		return fmt.Errorf("ruler.class_labels: %w", err)
	}

	if err := c.Labels.Validate(); err != nil {
		return fmt.Errorf("labels: %w", err)
	}

	switch c.Detection.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("detection.backend must be ollama or llamacpp, got %q", c.Detection.Backend)
	}
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be between 0 and 1")
	}
	if c.Detection.MaxImageSize < 1 {
		return fmt.Errorf("detection.max_image_size must be positive")
	}
	switch strings.ToLower(c.Detection.ImageFormat) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("detection.image_format must be jpg or png")
	}
	if _, err := c.DetectionTimeout(); err != nil {
		return err
	}

	pg, err := c.PregenConfig()
	if err != nil {
		return err
	}
	if err := pg.Validate(); err != nil {
		return fmt.Errorf("pregen: %w", err)
	}

	return nil
}

// DetectionTimeout parses detection.timeout
func (c *Config) DetectionTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Detection.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("detection.timeout must be a positive duration, got %q", c.Detection.Timeout)
	}
	return d, nil
}

// PregenConfig builds the pregenerator settings. Horizontal and vertical
// words come from the narration labels, and so do the distance words when
// pregen.rank_labels is empty.
func (c *Config) PregenConfig() (pregen.Config, error) {
	delay, err := time.ParseDuration(c.Pregen.RetryDelay)
	if err != nil || delay < 0 {
		return pregen.Config{}, fmt.Errorf("pregen.retry_delay must be a duration, got %q", c.Pregen.RetryDelay)
	}
	ranks := c.Pregen.RankLabels
	if len(ranks) == 0 {
		ranks = c.Labels.Distance
	}
	return pregen.Config{
		Dir:              c.Pregen.Dir,
		MaxObjPerSegment: c.Pregen.MaxObjPerSegment,
		RankLabels:       ranks,
		HorizontalLabels: c.Labels.Horizontal,
		VerticalLabels:   c.Labels.Vertical,
		HorizontalOnly:   c.Locator.HorizontalOnly,
		Language:         c.Pregen.Language,
		Extension:        c.Pregen.Extension,
		Workers:          c.Pregen.Workers,
		MaxRetries:       c.Pregen.MaxRetries,
		RetryDelay:       delay,
		SkipExisting:     c.Pregen.SkipExisting,
	}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "scene-narrator", "config.yaml")
}
