package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// MU holds one bin's Fellegi-Sunter parameters: m = P(bin | same person),
// u = P(bin | different people).
type MU struct {
	M float64 `mapstructure:"m"`
	U float64 `mapstructure:"u"`
}

// LoggingConfig controls the internal/logging output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// RestAPIConfig controls the optional internal/api HTTP shell.
type RestAPIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Host    string `mapstructure:"host"`
	CORS    bool   `mapstructure:"cors"`
	APIKey  string `mapstructure:"api_key"`
}

// StorageConfig selects the author.Repository implementation the CLI/API
// wire up.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=memory sqlite"` // "memory" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config is the complete, validated configuration for one engine instance.
type Config struct {
	Mode              string                 `mapstructure:"mode" validate:"oneof=baseline fs"`
	AcceptThreshold   float64                `mapstructure:"accept_threshold"`
	RejectThreshold   float64                `mapstructure:"reject_threshold"`
	SimilarityWeights map[string]float64     `mapstructure:"similarity_weights"`
	ComparisonBins    map[string][]string    `mapstructure:"comparison_bins"`
	MuTable           map[string]map[string]MU `mapstructure:"mu_table"`
	TopK              int                    `mapstructure:"top_k" validate:"min=1"`
	MaxCandidates     int                    `mapstructure:"max_candidates" validate:"min=1"`
	TraceSalt         string                 `mapstructure:"trace_salt"`
	TracePath         string                 `mapstructure:"trace_path"`
	ReviewPath        string                 `mapstructure:"review_path"`
	Production        bool                   `mapstructure:"production"`

	Logging LoggingConfig `mapstructure:"logging"`
	RestAPI RestAPIConfig `mapstructure:"rest_api"`
	Storage StorageConfig `mapstructure:"storage"`
}

// defaultComparisonBins gives each comparison feature its default bin
// vocabulary.
func defaultComparisonBins() map[string][]string {
	return map[string][]string{
		"name":         {"exact", "high", "medium", "low", "none"},
		"orcid":        {"match", "missing"},
		"coauthor":     {"high", "medium", "low", "none"},
		"journal":      {"high", "medium", "low", "none"},
		"affiliation":  {"exact", "high", "medium", "low", "none"},
		"chinese_name": {"high", "medium", "low", "unknown"},
	}
}

// DefaultConfig returns a valid configuration: baseline mode, weights
// favoring name over coauthors over journals, an in-memory repository, and
// tracing disabled.
func DefaultConfig() *Config {
	return &Config{
		Mode:            "baseline",
		AcceptThreshold: 0.70,
		RejectThreshold: 0.20,
		SimilarityWeights: map[string]float64{
			"name":     0.5,
			"coauthor": 0.3,
			"journal":  0.2,
		},
		ComparisonBins: defaultComparisonBins(),
		MuTable:        map[string]map[string]MU{},
		TopK:           5,
		MaxCandidates:  100,
		TraceSalt:      "",
		TracePath:      "",
		ReviewPath:     "",
		Production:     false,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RestAPI: RestAPIConfig{
			Enabled: false,
			Port:    8089,
			Host:    "localhost",
			CORS:    true,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
	}
}

// Load loads configuration from YAML with fallback to defaults. It searches,
// in order: ./config.yaml, ~/.disambiguate/config.yaml,
// /etc/disambiguate/config.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".disambiguate"))
	}
	v.AddConfigPath("/etc/disambiguate")

	return load(v)
}

// LoadFrom loads configuration from an explicit file path, bypassing the
// default search path. Used by the CLI's --config flag.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, &ConfigurationError{Reason: fmt.Sprintf("reading config file: %v", err)}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unmarshaling config: %v", err)}
	}
	if len(cfg.ComparisonBins) == 0 {
		cfg.ComparisonBins = defaultComparisonBins()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("mode", def.Mode)
	v.SetDefault("accept_threshold", def.AcceptThreshold)
	v.SetDefault("reject_threshold", def.RejectThreshold)
	v.SetDefault("similarity_weights", def.SimilarityWeights)
	v.SetDefault("top_k", def.TopK)
	v.SetDefault("max_candidates", def.MaxCandidates)
	v.SetDefault("trace_salt", def.TraceSalt)
	v.SetDefault("production", def.Production)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	v.SetDefault("rest_api.enabled", def.RestAPI.Enabled)
	v.SetDefault("rest_api.port", def.RestAPI.Port)
	v.SetDefault("rest_api.host", def.RestAPI.Host)
	v.SetDefault("rest_api.cors", def.RestAPI.CORS)

	v.SetDefault("storage.backend", def.Storage.Backend)
}

var structValidator = validator.New()

// Validate enforces every configuration invariant: threshold ordering and
// range, weight normalization, m/u bounds, and bin coverage. Simple
// field-level checks are expressed as validator struct tags; cross-field
// rules are explicit Go code.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}

	if c.RejectThreshold >= c.AcceptThreshold {
		return &ConfigurationError{Reason: "reject_threshold must be < accept_threshold"}
	}

	if c.RestAPI.Enabled && (c.RestAPI.Port < 1 || c.RestAPI.Port > 65535) {
		return &ConfigurationError{Reason: "rest_api.port must be between 1 and 65535 when enabled"}
	}

	if c.Mode == "baseline" {
		if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 || c.RejectThreshold < 0 || c.RejectThreshold > 1 {
			return &ConfigurationError{Reason: "baseline mode requires 0 <= reject_threshold < accept_threshold <= 1"}
		}
		sum := 0.0
		for feature, w := range c.SimilarityWeights {
			if w < 0 {
				return &ConfigurationError{Reason: fmt.Sprintf("similarity_weights[%s] must be non-negative", feature)}
			}
			sum += w
		}
		if len(c.SimilarityWeights) > 0 && !approximatelyOne(sum) {
			return &ConfigurationError{Reason: fmt.Sprintf("similarity_weights must sum to 1.0, got %v", sum)}
		}
	}

	if c.Mode == "fs" {
		for feature, bins := range c.MuTable {
			for bin, mu := range bins {
				if mu.M <= 0 || mu.M > 1 || mu.U <= 0 || mu.U > 1 {
					return &ConfigurationError{Reason: fmt.Sprintf("mu_table[%s][%s] must have m,u in (0,1], got m=%v u=%v", feature, bin, mu.M, mu.U)}
				}
			}
		}
		for feature, bins := range c.ComparisonBins {
			table, ok := c.MuTable[feature]
			if !ok {
				continue
			}
			for _, bin := range bins {
				if _, ok := table[bin]; !ok {
					return &ConfigurationError{Reason: fmt.Sprintf("mu_table missing entry for %s bin %q referenced in comparison_bins", feature, bin)}
				}
			}
		}
	}

	if c.Production && c.TraceSalt == "" {
		return &ConfigurationError{Reason: "trace_salt is required in production"}
	}

	return nil
}

func approximatelyOne(sum float64) bool {
	const epsilon = 1e-9
	diff := sum - 1.0
	if diff < 0 {
		diff = -diff
	}
	return diff <= epsilon
}

// ConfigDir returns the default per-user configuration directory.
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".disambiguate")
}
