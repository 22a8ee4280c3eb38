package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Dir is the per-repository configuration directory.
const Dir = ".factgraph"

// FileName is the configuration file inside Dir.
const FileName = "config.toml"

// CurrentVersion is the only supported config schema version.
const CurrentVersion = 1

// Config represents the complete factgraph configuration
type Config struct {
	Version  int            `toml:"version" mapstructure:"version"`
	Schema   SchemaConfig   `toml:"schema" mapstructure:"schema"`
	Frontend FrontendConfig `toml:"frontend" mapstructure:"frontend"`
	Output   OutputConfig   `toml:"output" mapstructure:"output"`
	Sink     SinkConfig     `toml:"sink" mapstructure:"sink"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
}

// SchemaConfig controls predicate naming and id allocation
type SchemaConfig struct {
	Name    string `toml:"name" mapstructure:"name"`
	Version int    `toml:"version" mapstructure:"version"`
	BaseID  int64  `toml:"baseId" mapstructure:"baseId"`
}

// FrontendConfig selects and tunes the input front end
type FrontendConfig struct {
	Kind       string   `toml:"kind" mapstructure:"kind"`
	Extensions []string `toml:"extensions" mapstructure:"extensions"`
	Ignore     []string `toml:"ignore" mapstructure:"ignore"`
	Workers    int      `toml:"workers" mapstructure:"workers"`
	ScipIndex  string   `toml:"scipIndex" mapstructure:"scipIndex"`
	BatchFile  string   `toml:"batchFile" mapstructure:"batchFile"`
}

// OutputConfig controls how fact blocks are written
type OutputConfig struct {
	Path     string `toml:"path" mapstructure:"path"`
	Compress string `toml:"compress" mapstructure:"compress"`
	Indent   bool   `toml:"indent" mapstructure:"indent"`
	Verify   bool   `toml:"verify" mapstructure:"verify"`
}

// SinkConfig configures the optional SQLite sink
type SinkConfig struct {
	SQLitePath string `toml:"sqlitePath" mapstructure:"sqlitePath"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `toml:"format" mapstructure:"format"`
	Level  string `toml:"level" mapstructure:"level"`
}

// Front end kinds
const (
	FrontendPHP   = "php"
	FrontendSCIP  = "scip"
	FrontendBatch = "batch"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Schema: SchemaConfig{
			Name:    "hack",
			Version: 6,
			BaseID:  1 << 32,
		},
		Frontend: FrontendConfig{
			Kind:       FrontendPHP,
			Extensions: []string{".php", ".inc"},
			Ignore:     []string{"vendor", "node_modules", ".git", Dir},
			Workers:    4,
			ScipIndex:  "index.scip",
			BatchFile:  "batch.yaml",
		},
		Output: OutputConfig{
			Path:     "facts.json",
			Compress: "none",
			Indent:   false,
			Verify:   true,
		},
		Sink: SinkConfig{
			SQLitePath: "",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .factgraph/config.toml, applying
// FACTGRAPH_* environment overrides (e.g. FACTGRAPH_OUTPUT_COMPRESS=zstd)
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(repoRoot, Dir))

	v.SetEnvPrefix("FACTGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("schema.name", d.Schema.Name)
	v.SetDefault("schema.version", d.Schema.Version)
	v.SetDefault("schema.baseId", d.Schema.BaseID)
	v.SetDefault("frontend.kind", d.Frontend.Kind)
	v.SetDefault("frontend.extensions", d.Frontend.Extensions)
	v.SetDefault("frontend.ignore", d.Frontend.Ignore)
	v.SetDefault("frontend.workers", d.Frontend.Workers)
	v.SetDefault("frontend.scipIndex", d.Frontend.ScipIndex)
	v.SetDefault("frontend.batchFile", d.Frontend.BatchFile)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.compress", d.Output.Compress)
	v.SetDefault("output.indent", d.Output.Indent)
	v.SetDefault("output.verify", d.Output.Verify)
	v.SetDefault("sink.sqlitePath", d.Sink.SQLitePath)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Save writes the configuration to .factgraph/config.toml
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Schema.Version <= 0 {
		return &ConfigError{Field: "schema.version", Message: "must be positive"}
	}
	if c.Schema.BaseID < 0 {
		return &ConfigError{Field: "schema.baseId", Message: "must not be negative"}
	}
	switch c.Frontend.Kind {
	case FrontendPHP, FrontendSCIP, FrontendBatch:
	default:
		return &ConfigError{Field: "frontend.kind", Message: fmt.Sprintf("unknown front end %q", c.Frontend.Kind)}
	}
	if c.Frontend.Workers < 1 {
		return &ConfigError{Field: "frontend.workers", Message: "must be at least 1"}
	}
	switch c.Output.Compress {
	case "none", "zstd":
	default:
		return &ConfigError{Field: "output.compress", Message: fmt.Sprintf("unknown compression %q", c.Output.Compress)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
