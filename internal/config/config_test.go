package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"competitive-intel/internal/form"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("API_PORT", "")
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Backend.BaseURL != DefaultBackendURL {
		t.Errorf("base_url = %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeouts.Metrics != 30*time.Second || c.Backend.Timeouts.Insight != 60*time.Second {
		t.Errorf("timeouts = %+v", c.Backend.Timeouts)
	}
	if c.Company != form.Defaults() {
		t.Errorf("company = %+v", c.Company)
	}
	if c.Server.Port != DefaultPort || len(c.Server.AllowedOrigins) != 2 {
		t.Errorf("server = %+v", c.Server)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
backend:
  base_url: http://analysis.internal:9000/
  timeouts:
    insight: 90s
server:
  port: "9090"
  session_ttl: 5m
company:
  revenue: "200"
  name: Initech
`)
	t.Setenv("BACKEND_URL", "")
	t.Setenv("API_PORT", "7070")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Backend.BaseURL != "http://analysis.internal:9000" {
		t.Errorf("base_url = %q", c.Backend.BaseURL)
	}
	if c.Backend.Timeouts.Insight != 90*time.Second || c.Backend.Timeouts.Metrics != 30*time.Second {
		t.Errorf("timeouts = %+v", c.Backend.Timeouts)
	}
	if c.Server.Port != "7070" {
		t.Errorf("port = %q, want env override", c.Server.Port)
	}
	if c.Server.SessionTTL != 5*time.Minute {
		t.Errorf("session_ttl = %v", c.Server.SessionTTL)
	}
	if c.Company.Revenue != "200" || c.Company.NPS != "60" || c.Company.Name != "Initech" {
		t.Errorf("company = %+v", c.Company)
	}
	if got := c.Timeouts(); got.Insight != 90*time.Second {
		t.Errorf("Timeouts() = %+v", got)
	}
}

func TestCompanyFileMerged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "acme.yaml", "company:\n  revenue: \"50\"\n  nps: \"10\"\n")
	p := writeFile(t, dir, "config.yaml", "company_file: acme.yaml\ncompany:\n  nps: \"20\"\n")

	c, err := LoadUnchecked(p)
	if err != nil {
		t.Fatalf("LoadUnchecked: %v", err)
	}
	if c.Company.Revenue != "50" || c.Company.NPS != "20" {
		t.Errorf("company = %+v", c.Company)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Backend.BaseURL = "ftp://x" }},
		{"negative timeout", func(c *Config) { c.Backend.Timeouts.Insight = -time.Second }},
		{"invalid company", func(c *Config) { c.Company.NPS = "500" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", "backend: [")
	if _, err := Load(p); err == nil {
		t.Error("Load() = nil error for invalid YAML")
	}
}
