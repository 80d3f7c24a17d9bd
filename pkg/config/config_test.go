package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "mock" {
		t.Errorf("expected default provider mock, got %s", cfg.LLM.Provider)
	}
	if cfg.Runtime.Audit.Driver != "memory" {
		t.Errorf("expected memory audit driver, got %s", cfg.Runtime.Audit.Driver)
	}
	if cfg.Runtime.Timeout() != 0 {
		t.Errorf("timeout should be off by default, got %s", cfg.Runtime.Timeout())
	}
	if cfg.MCP.Name != "skillrt" || cfg.Telemetry.ServiceName != "skillrt" {
		t.Errorf("unexpected names: %+v %+v", cfg.MCP, cfg.Telemetry)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skillrt.yaml")
	writeFile(t, path, `
log:
  level: debug
runtime:
  timeout_ms: 1500
  audit:
    driver: sqlite
    dsn: file:audit.db
skills:
  disabled: [tagline]
llm:
  provider: ollama
`)
	t.Setenv("SKILLRT_LLM_MODEL", "qwen2.5")
	t.Setenv("SKILLRT_RUNTIME_AUDIT_RETENTION_HOURS", "48")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Log.Level)
	}
	if cfg.Runtime.Timeout().Milliseconds() != 1500 {
		t.Errorf("unexpected timeout %s", cfg.Runtime.Timeout())
	}
	if cfg.Runtime.Audit.Driver != "sqlite" || cfg.Runtime.Audit.DSN != "file:audit.db" {
		t.Errorf("unexpected audit config %+v", cfg.Runtime.Audit)
	}
	if len(cfg.Skills.Disabled) != 1 || cfg.Skills.Disabled[0] != "tagline" {
		t.Errorf("unexpected disabled skills %v", cfg.Skills.Disabled)
	}
	if cfg.LLM.Model != "qwen2.5" {
		t.Errorf("expected env model, got %s", cfg.LLM.Model)
	}
	if cfg.Runtime.Audit.RetentionHours != 48 {
		t.Errorf("expected env retention, got %d", cfg.Runtime.Audit.RetentionHours)
	}
}

func TestLoadEnvList(t *testing.T) {
	t.Setenv("SKILLRT_SKILLS_DISABLED", "tagline, sum")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Skills.Disabled) != 2 || cfg.Skills.Disabled[1] != "sum" {
		t.Fatalf("unexpected disabled list %v", cfg.Skills.Disabled)
	}
}

func TestLoadWithProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "llm:\n  provider: ollama\n  model: base\nlog:\n  level: info\n")
	writeFile(t, filepath.Join(dir, "config.dev.yaml"), "llm:\n  model: dev\n")

	cfg, err := LoadWith(Options{Path: path, Profile: "dev"})
	if err != nil {
		t.Fatalf("LoadWith failed: %v", err)
	}
	if cfg.LLM.Model != "dev" {
		t.Errorf("expected profile model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected base provider to survive, got %s", cfg.LLM.Provider)
	}

	cfg, err = LoadWith(Options{Path: path, Profile: "prod"})
	if err != nil {
		t.Fatalf("missing profile file should be ignored: %v", err)
	}
	if cfg.LLM.Model != "base" {
		t.Errorf("expected base model, got %s", cfg.LLM.Model)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	t.Setenv("SKILLRT_LLM_PROVIDER", "ollama")
	cfg, err := LoadWith(Options{Overrides: []string{
		"llm.provider=mock",
		"runtime.timeout_ms=250",
		"telemetry.enabled=true",
		"skills.disabled=[tagline, slugify]",
		"mcp.version=1.2.0",
	}})
	if err != nil {
		t.Fatalf("LoadWith failed: %v", err)
	}
	if cfg.LLM.Provider != "mock" {
		t.Errorf("override should beat env, got %s", cfg.LLM.Provider)
	}
	if cfg.Runtime.TimeoutMs != 250 || !cfg.Telemetry.Enabled {
		t.Errorf("unexpected overrides %+v %+v", cfg.Runtime, cfg.Telemetry)
	}
	if len(cfg.Skills.Disabled) != 2 {
		t.Errorf("unexpected disabled %v", cfg.Skills.Disabled)
	}
	if cfg.MCP.Version != "1.2.0" {
		t.Errorf("expected version string, got %q", cfg.MCP.Version)
	}
}

func TestParseOverrideErrors(t *testing.T) {
	for _, raw := range []string{"invalid", "=value", "key=[unclosed"} {
		if _, _, err := ParseOverride(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
	key, value, err := ParseOverride("skills.manifest=")
	if err != nil || key != "skills.manifest" || value != "" {
		t.Fatalf("empty value should be an empty string, got %q %v %v", key, value, err)
	}
}

func TestValidate(t *testing.T) {
	_, err := LoadWith(Options{Overrides: []string{
		"log.format=xml",
		"runtime.audit.driver=sqlite",
		"runtime.timeout_ms=-1",
	}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"log.format", "runtime.audit.dsn", "runtime.timeout_ms"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestProfilePath(t *testing.T) {
	if got := ProfilePath("/etc/skillrt/config.yaml", "dev"); got != "/etc/skillrt/config.dev.yaml" {
		t.Fatalf("unexpected profile path %s", got)
	}
	if got := ProfilePath("config.yaml", ""); got != "" {
		t.Fatalf("expected empty path without profile, got %s", got)
	}
}

func TestLoadMCPRemotes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skillrt.yaml")
	writeFile(t, path, `
mcp:
  remotes:
    docs:
      command: docs-mcp
      args: ["--stdio"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	remote, ok := cfg.MCP.Remotes["docs"]
	if !ok || remote.Command != "docs-mcp" || len(remote.Args) != 1 || remote.Args[0] != "--stdio" {
		t.Fatalf("unexpected remotes: %+v", cfg.MCP.Remotes)
	}

	writeFile(t, path, `
mcp:
  remotes:
    docs:
      args: ["--stdio"]
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "mcp.remotes.docs.command: required") {
		t.Fatalf("expected missing command error, got %v", err)
	}
}
