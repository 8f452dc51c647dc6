package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// ConfigEnvVar names an explicit config file, resolved against the working directory.
	ConfigEnvVar = "SUBAGENTS_CONFIG"
	// DefaultConfigFile is picked up from the working directory when present.
	DefaultConfigFile = "subagents.config.json"

	// ProviderLMStudio selects the OpenAI-compatible completion endpoint.
	ProviderLMStudio = "lmstudio-openai"
)

// Config is the complete, validated configuration surface.
type Config struct {
	Roots      []string         `json:"roots" mapstructure:"roots" validate:"min=1,dive,required"`
	Limits     LimitsConfig     `json:"limits" mapstructure:"limits"`
	Runtime    RuntimeConfig    `json:"runtime" mapstructure:"runtime"`
	Compaction CompactionConfig `json:"compaction" mapstructure:"compaction"`
	Provider   ProviderConfig   `json:"provider" mapstructure:"provider"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Artifacts  ArtifactsConfig  `json:"artifacts" mapstructure:"artifacts"`
	Telemetry  TelemetryConfig  `json:"telemetry" mapstructure:"telemetry"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `json:"-" mapstructure:"-"`
}

// LimitsConfig bounds every Locator scan.
type LimitsConfig struct {
	MaxFilesRead int `json:"maxFilesRead" mapstructure:"maxFilesRead" validate:"gt=0"`
	MaxBytesRead int `json:"maxBytesRead" mapstructure:"maxBytesRead" validate:"gt=0"`
}

// RuntimeConfig sizes the worker pool and the default task deadline.
type RuntimeConfig struct {
	MaxConcurrentTasks int `json:"maxConcurrentTasks" mapstructure:"maxConcurrentTasks" validate:"gt=0"`
	DefaultDeadlineMs  int `json:"defaultDeadlineMs" mapstructure:"defaultDeadlineMs" validate:"gt=0"`
}

// CompactionConfig caps what Analyzer and Pattern-Finder read and report.
// Zero byte budgets fall back to limits.maxBytesRead.
type CompactionConfig struct {
	MaxAnalyzerFiles     int `json:"maxAnalyzerFiles" mapstructure:"maxAnalyzerFiles" validate:"gte=0"`
	MaxAnalyzerBytesRead int `json:"maxAnalyzerBytesRead" mapstructure:"maxAnalyzerBytesRead" validate:"gte=0"`
	MaxPatternFiles      int `json:"maxPatternFiles" mapstructure:"maxPatternFiles" validate:"gte=0"`
	MaxPatternBytesRead  int `json:"maxPatternBytesRead" mapstructure:"maxPatternBytesRead" validate:"gte=0"`
	MaxPatterns          int `json:"maxPatterns" mapstructure:"maxPatterns" validate:"gte=0"`
	MaxKeyFindings       int `json:"maxKeyFindings" mapstructure:"maxKeyFindings" validate:"gte=0"`
	SnippetContextLines  int `json:"snippetContextLines" mapstructure:"snippetContextLines" validate:"gte=0"`
}

// ProviderConfig configures the optional remote keyword extractor.
type ProviderConfig struct {
	Kind    string `json:"kind" mapstructure:"kind" validate:"omitempty,oneof=lmstudio-openai"`
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl" validate:"required_if=Kind lmstudio-openai,omitempty,url"`
	Model   string `json:"model" mapstructure:"model" validate:"required_if=Kind lmstudio-openai"`
	APIKey  string `json:"-" mapstructure:"apiKey"`
	// RequestsPerSecond paces calls to the endpoint; 0 disables pacing.
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requestsPerSecond" validate:"gte=0"`
}

// Enabled reports whether a remote provider is configured.
func (p ProviderConfig) Enabled() bool {
	return p.Kind != ""
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" validate:"oneof=human json"`
	Level  string `json:"level" mapstructure:"level" validate:"oneof=error warn info debug"`
	File   string `json:"file,omitempty" mapstructure:"file"`
}

// ArtifactsConfig controls on-disk research artifacts.
type ArtifactsConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Dir      string `json:"dir" mapstructure:"dir" validate:"required_if=Enabled true"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// TelemetryConfig controls the metrics endpoint and span export.
type TelemetryConfig struct {
	MetricsAddr string `json:"metricsAddr,omitempty" mapstructure:"metricsAddr" validate:"omitempty,hostname_port"`
	Trace       bool   `json:"trace" mapstructure:"trace"`
}

// Compaction defaults.
const (
	DefaultMaxAnalyzerFiles    = 5
	DefaultMaxPatternFiles     = 10
	DefaultMaxPatterns         = 6
	DefaultMaxKeyFindings      = 12
	DefaultSnippetContextLines = 0
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Roots: []string{"."},
		Limits: LimitsConfig{
			MaxFilesRead: 50,
			MaxBytesRead: 1024 * 1024,
		},
		Runtime: RuntimeConfig{
			MaxConcurrentTasks: 4,
			DefaultDeadlineMs:  30_000,
		},
		Compaction: CompactionConfig{
			MaxAnalyzerFiles:    DefaultMaxAnalyzerFiles,
			MaxPatternFiles:     DefaultMaxPatternFiles,
			MaxPatterns:         DefaultMaxPatterns,
			MaxKeyFindings:      DefaultMaxKeyFindings,
			SnippetContextLines: DefaultSnippetContextLines,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Artifacts: ArtifactsConfig{
			Dir: filepath.Join(".subagents", "artifacts"),
		},
	}
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Cwd resolves relative roots and config paths; defaults to os.Getwd.
	Cwd string
	// Path overrides SUBAGENTS_CONFIG and the default file.
	Path string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load reads, normalizes and validates configuration.
// Precedence: explicit path > SUBAGENTS_CONFIG > ./subagents.config.json > defaults.
func Load(opts LoadOptions) (*Config, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.Cwd = wd
	}

	v := viper.New()
	setDefaults(v)

	path := resolveConfigPath(opts)
	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("json")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, &ConfigError{Field: "path", Message: fmt.Sprintf("config file not found: %s", path)}
			}
			return nil, fmt.Errorf("failed to parse config at %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Path = path

	applyProviderEnv(&cfg.Provider, opts.Getenv)
	if err := cfg.normalize(opts.Cwd); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("roots", d.Roots)
	v.SetDefault("limits.maxFilesRead", d.Limits.MaxFilesRead)
	v.SetDefault("limits.maxBytesRead", d.Limits.MaxBytesRead)
	v.SetDefault("runtime.maxConcurrentTasks", d.Runtime.MaxConcurrentTasks)
	v.SetDefault("runtime.defaultDeadlineMs", d.Runtime.DefaultDeadlineMs)
	v.SetDefault("compaction.maxAnalyzerFiles", d.Compaction.MaxAnalyzerFiles)
	v.SetDefault("compaction.maxPatternFiles", d.Compaction.MaxPatternFiles)
	v.SetDefault("compaction.maxPatterns", d.Compaction.MaxPatterns)
	v.SetDefault("compaction.maxKeyFindings", d.Compaction.MaxKeyFindings)
	v.SetDefault("compaction.snippetContextLines", d.Compaction.SnippetContextLines)
	v.SetDefault("provider.kind", "")
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("artifacts.enabled", false)
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("telemetry.trace", false)
}

func resolveConfigPath(opts LoadOptions) string {
	if opts.Path != "" {
		return absFrom(opts.Cwd, opts.Path)
	}
	if fromEnv := strings.TrimSpace(opts.Getenv(ConfigEnvVar)); fromEnv != "" {
		return absFrom(opts.Cwd, fromEnv)
	}
	defaultPath := filepath.Join(opts.Cwd, DefaultConfigFile)
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}
	return ""
}

func applyProviderEnv(p *ProviderConfig, getenv func(string) string) {
	p.Kind = strings.TrimSpace(p.Kind)
	if !p.Enabled() {
		return
	}
	if p.BaseURL == "" {
		p.BaseURL = getenv("SUBAGENTS_LMSTUDIO_BASE_URL")
	}
	if p.Model == "" {
		p.Model = getenv("SUBAGENTS_MODEL")
	}
	if p.APIKey == "" {
		p.APIKey = getenv("SUBAGENTS_API_KEY")
	}
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.Model = strings.TrimSpace(p.Model)
	p.APIKey = strings.TrimSpace(p.APIKey)
}

// normalize resolves roots against cwd, removes duplicates and sorts them,
// and fills compaction fallbacks.
func (c *Config) normalize(cwd string) error {
	seen := make(map[string]bool, len(c.Roots))
	roots := make([]string, 0, len(c.Roots))
	for _, root := range c.Roots {
		if strings.TrimSpace(root) == "" {
			return &ConfigError{Field: "roots", Message: fmt.Sprintf("invalid root %q; expected non-empty string", root)}
		}
		abs := absFrom(cwd, root)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		roots = append(roots, abs)
	}
	sort.Strings(roots)
	c.Roots = roots

	if c.Artifacts.Dir != "" {
		c.Artifacts.Dir = absFrom(cwd, c.Artifacts.Dir)
	}
	return nil
}

// AnalyzerFiles returns compaction.maxAnalyzerFiles or its default.
func (c *Config) AnalyzerFiles() int {
	return orDefault(c.Compaction.MaxAnalyzerFiles, DefaultMaxAnalyzerFiles)
}

// AnalyzerBytes returns compaction.maxAnalyzerBytesRead or limits.maxBytesRead.
func (c *Config) AnalyzerBytes() int {
	return orDefault(c.Compaction.MaxAnalyzerBytesRead, c.Limits.MaxBytesRead)
}

// PatternFiles returns compaction.maxPatternFiles or its default.
func (c *Config) PatternFiles() int {
	return orDefault(c.Compaction.MaxPatternFiles, DefaultMaxPatternFiles)
}

// PatternBytes returns compaction.maxPatternBytesRead or limits.maxBytesRead.
func (c *Config) PatternBytes() int {
	return orDefault(c.Compaction.MaxPatternBytesRead, c.Limits.MaxBytesRead)
}

// Patterns returns compaction.maxPatterns or its default.
func (c *Config) Patterns() int {
	return orDefault(c.Compaction.MaxPatterns, DefaultMaxPatterns)
}

// KeyFindings returns compaction.maxKeyFindings or its default.
func (c *Config) KeyFindings() int {
	return orDefault(c.Compaction.MaxKeyFindings, DefaultMaxKeyFindings)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func absFrom(cwd, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	return filepath.Clean(p)
}

// JSON renders the configuration for `subagents config`.
func (c *Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	return &ConfigError{Field: field, Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "expected positive integer"
	case "gte":
		return "expected non-negative integer"
	case "oneof":
		return fmt.Sprintf("invalid value %q; expected one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "required_if", "required":
		return "is required"
	case "min":
		return "expected at least one entry"
	case "url":
		return fmt.Sprintf("invalid URL %q", fe.Value())
	case "hostname_port":
		return fmt.Sprintf("invalid address %q; expected host:port", fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
