// Package config loads skillrt settings from defaults, YAML files,
// SKILLRT_ environment variables and key=value overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SKILLRT_LLM_MODEL.
const EnvPrefix = "SKILLRT_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Runtime   RuntimeConfig   `koanf:"runtime"`
	Skills    SkillsConfig    `koanf:"skills"`
	LLM       LLMConfig       `koanf:"llm"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled            bool   `koanf:"enabled"`
	Exporter           string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint       string `koanf:"otlp_endpoint"`
	OTLPInsecure       bool   `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int    `koanf:"otlp_timeout_seconds"`
	ServiceName        string `koanf:"service_name"`
}

type RuntimeConfig struct {
	// TimeoutMs bounds each skill implementation call. Zero disables it.
	TimeoutMs int         `koanf:"timeout_ms"`
	Audit     AuditConfig `koanf:"audit"`
}

// Timeout returns TimeoutMs as a duration.
func (c RuntimeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type AuditConfig struct {
	Driver               string `koanf:"driver"` // none, memory, sqlite
	DSN                  string `koanf:"dsn"`
	RetentionHours       int    `koanf:"retention_hours"`
	SweepIntervalSeconds int    `koanf:"sweep_interval_seconds"`
}

type SkillsConfig struct {
	Manifest string   `koanf:"manifest"`
	Disabled []string `koanf:"disabled"`
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // mock, ollama
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
}

type MCPConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
	// Remotes are stdio MCP servers whose tools are imported as
	// "<name>.<tool>" skills.
	Remotes map[string]RemoteConfig `koanf:"remotes"`
}

type RemoteConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

var defaults = map[string]any{
	"log.level":                            "info",
	"log.format":                           "text",
	"telemetry.enabled":                    false,
	"telemetry.exporter":                   "stdout",
	"telemetry.otlp_endpoint":              "localhost:4317",
	"telemetry.otlp_insecure":              false,
	"telemetry.otlp_timeout_seconds":       0,
	"telemetry.service_name":               "skillrt",
	"runtime.timeout_ms":                   0,
	"runtime.audit.driver":                 "memory",
	"runtime.audit.dsn":                    "",
	"runtime.audit.retention_hours":        0,
	"runtime.audit.sweep_interval_seconds": 0,
	"skills.manifest":                      "",
	"skills.disabled":                      []string{},
	"llm.provider":                         "mock",
	"llm.model":                            "llama3.2",
	"llm.base_url":                         "http://localhost:11434",
	"mcp.name":                             "skillrt",
	"mcp.version":                          "0.1.0",
}

// Options selects the sources merged by LoadWith.
type Options struct {
	// Path is the main YAML file. Empty means defaults and environment only.
	Path string
	// Profile merges <name>.<profile><ext> next to Path when it exists.
	Profile string
	// Overrides are key=value pairs applied last. Values are parsed as YAML.
	Overrides []string
}

// Load reads path (optional) and the environment.
func Load(path string) (*Config, error) {
	return LoadWith(Options{Path: path})
}

// LoadWith merges defaults, the file, the profile file, the environment and
// overrides, in that order.
func LoadWith(opts Options) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.Path, err)
		}
		if profile := ProfilePath(opts.Path, opts.Profile); profile != "" {
			if _, err := os.Stat(profile); err == nil {
				if err := k.Load(file.Provider(profile), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("load profile %s: %w", profile, err)
				}
			}
		}
	}

	// SKILLRT_RUNTIME_AUDIT_DSN -> runtime.audit.dsn
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, err
	}

	for _, raw := range opts.Overrides {
		key, value, err := ParseOverride(raw)
		if err != nil {
			return nil, err
		}
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("apply override %q: %w", raw, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProfilePath returns the profile overlay for path, or "" when profile is empty.
func ProfilePath(path, profile string) string {
	if path == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + profile + ext
}

// ParseOverride splits key=value and decodes value as a YAML scalar or document.
func ParseOverride(raw string) (string, any, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid override %q: expected key=value", raw)
	}
	var parsed any
	if err := yamlv3.Unmarshal([]byte(value), &parsed); err != nil {
		return "", nil, fmt.Errorf("invalid override %q: %w", raw, err)
	}
	if parsed == nil {
		if v := strings.TrimSpace(value); v != "null" && v != "~" {
			parsed = value
		}
	}
	return key, parsed, nil
}

// envValue maps SKILLRT_ variables onto known keys so underscores inside
// key names survive. Unknown names split on the first underscore.
func envValue(name, value string) (string, any) {
	flat := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key := ""
	for known := range defaults {
		if strings.ReplaceAll(known, ".", "_") == flat {
			key = known
			break
		}
	}
	if key == "" {
		key = strings.Replace(flat, "_", ".", 1)
	}
	if _, isList := defaults[key].([]string); isList {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	switch c.Log.Format {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("log.format: unsupported %q", c.Log.Format))
	}
	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		result = multierror.Append(result, fmt.Errorf("telemetry.exporter: unsupported %q", c.Telemetry.Exporter))
	}
	if c.Runtime.TimeoutMs < 0 {
		result = multierror.Append(result, fmt.Errorf("runtime.timeout_ms: must not be negative"))
	}
	switch c.Runtime.Audit.Driver {
	case "none", "memory":
	case "sqlite":
		if c.Runtime.Audit.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("runtime.audit.dsn: required for sqlite driver"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("runtime.audit.driver: unsupported %q", c.Runtime.Audit.Driver))
	}
	if c.Runtime.Audit.RetentionHours < 0 || c.Runtime.Audit.SweepIntervalSeconds < 0 {
		result = multierror.Append(result, fmt.Errorf("runtime.audit: retention and sweep interval must not be negative"))
	}
	for name, remote := range c.MCP.Remotes {
		if strings.TrimSpace(remote.Command) == "" {
			result = multierror.Append(result, fmt.Errorf("mcp.remotes.%s.command: required", name))
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return "invalid config: " + strings.Join(msgs, "; ")
	}
	return result
}
