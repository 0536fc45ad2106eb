package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"oastypes/internal/domain"
)

const envPrefix = "oastypes"

// SchemaSource is one entry of the configuration file's ordered sources
// list. Exactly one of Path, Command or URL must be set; Cwd applies to
// command entries only.
type SchemaSource struct {
	Path    string `yaml:"path,omitempty"`
	Command string `yaml:"command,omitempty"`
	Cwd     string `yaml:"cwd,omitempty"`
	URL     string `yaml:"url,omitempty"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	Sources     []SchemaSource `yaml:"sources"`
	ProjectRoot string         `yaml:"project_root"`
	TypesDir    string         `yaml:"types_dir"`
	Overlay     string         `yaml:"overlay"`
	AutoAdd     *bool          `yaml:"auto_add"`
	TimeoutMS   int            `yaml:"timeout_ms"`
	LogLevel    string         `yaml:"log_level"`
}

// Config holds the final application configuration. Precedence per setting:
// command-line flag (applied by main) > environment variable with the
// OASTYPES_ prefix > configuration file > default.
type Config struct {
	// Config file path (loaded first from env; -config overrides it).
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// Sources is the ordered schema source list from the configuration
	// file. Source flags replace it entirely.
	Sources []SchemaSource `ignored:"true"`

	ProjectRoot string `envconfig:"PROJECT_ROOT" default:"."`
	TypesDir    string `envconfig:"TYPES_DIR" default:"internal/types"`
	Overlay     string `envconfig:"OVERLAY"`
	AutoAdd     bool   `envconfig:"AUTO_ADD" default:"false"`
	TimeoutMS   int    `envconfig:"TIMEOUT_MS" default:"30000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
}

// Timeout returns the URL fetch timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Validate reports configuration values no run can proceed with.
func (c *Config) Validate() error {
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.TimeoutMS)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// DomainSources converts the configured source entries into domain sources,
// preserving file order.
func (c *Config) DomainSources() ([]domain.SchemaSource, error) {
	out := make([]domain.SchemaSource, 0, len(c.Sources))
	for i, s := range c.Sources {
		set := 0
		if s.Path != "" {
			set++
		}
		if s.Command != "" {
			set++
		}
		if s.URL != "" {
			set++
		}
		if set != 1 {
			return nil, fmt.Errorf("sources[%d]: exactly one of path, command or url must be set", i)
		}
		switch {
		case s.Path != "":
			out = append(out, domain.SchemaSource{Kind: domain.SourceKindPath, Value: s.Path})
		case s.Command != "":
			out = append(out, domain.SchemaSource{Kind: domain.SourceKindCommand, Value: s.Command, Workdir: s.Cwd})
		default:
			out = append(out, domain.SchemaSource{Kind: domain.SourceKindURL, Value: s.URL})
		}
	}
	return out, nil
}

// Load loads configuration from environment variables, then merges in the
// YAML file when one is configured. configPath, when non-empty, overrides
// the file path from the environment.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment variables: %w", err)
	}
	if configPath != "" {
		cfg.ConfigFilePath = configPath
	}
	if cfg.ConfigFilePath == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", cfg.ConfigFilePath, err)
	}
	var fileCfg FileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", cfg.ConfigFilePath, err)
	}
	mergeFile(&cfg, fileCfg)
	return &cfg, nil
}

// mergeFile applies file values beneath environment values: a file setting
// takes effect only when its environment variable is unset.
func mergeFile(cfg *Config, file FileConfig) {
	cfg.Sources = file.Sources
	if file.ProjectRoot != "" && !envSet("PROJECT_ROOT") {
		cfg.ProjectRoot = file.ProjectRoot
	}
	if file.TypesDir != "" && !envSet("TYPES_DIR") {
		cfg.TypesDir = file.TypesDir
	}
	if file.Overlay != "" && !envSet("OVERLAY") {
		cfg.Overlay = file.Overlay
	}
	if file.AutoAdd != nil && !envSet("AUTO_ADD") {
		cfg.AutoAdd = *file.AutoAdd
	}
	if file.TimeoutMS != 0 && !envSet("TIMEOUT_MS") {
		cfg.TimeoutMS = file.TimeoutMS
	}
	if file.LogLevel != "" && !envSet("LOG_LEVEL") {
		cfg.LogLevel = file.LogLevel
	}
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(strings.ToUpper(envPrefix) + "_" + name)
	return ok
}
