package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"competitive-intel/internal/form"
	"competitive-intel/internal/session"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL = "http://127.0.0.1:8000"
	DefaultPort       = "8080"
	DefaultDevPort    = "8000"
	DefaultStaticDir  = "./web/dist"
	DefaultSessionTTL = 30 * time.Minute
)

// DefaultOrigins are the dashboard origins allowed by CORS when none are configured.
var DefaultOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load the default company from a separate YAML (e.g. examples/companies/*.yaml).
	// If both CompanyFile and Company are provided, Company overrides CompanyFile.
	CompanyFile string           `yaml:"company_file"`
	Company     form.Fields      `yaml:"company"`
	Backend     BackendConfig    `yaml:"backend"`
	Server      ServerConfig     `yaml:"server"`
	DevBackend  DevBackendConfig `yaml:"devbackend"`
}

type BackendConfig struct {
	BaseURL  string         `yaml:"base_url"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
}

type TimeoutsConfig struct {
	Metrics    time.Duration `yaml:"metrics"`
	Insight    time.Duration `yaml:"insight"`
	Simulation time.Duration `yaml:"simulation"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	StaticDir      string        `yaml:"static_dir"`
}

type DevBackendConfig struct {
	Port string `yaml:"port"`
	// Model is the Anthropic model used for insight text. The API key is
	// only ever read from ANTHROPIC_API_KEY.
	Model string `yaml:"model"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path (if non-empty), applies environment overrides and defaults,
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it or fill
// in defaults. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	var c Config
	if path == "" {
		return &c, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// If company_file is set, load it and merge in any explicit overrides from c.Company.
	if c.CompanyFile != "" {
		companyPath := c.CompanyFile
		if !filepath.IsAbs(companyPath) {
			// Relative paths are tried next to the config file first, then
			// relative to the working directory.
			cand := filepath.Join(filepath.Dir(path), companyPath)
			if _, err := os.Stat(cand); err == nil {
				companyPath = cand
			}
		}
		loaded, err := loadCompanyFile(companyPath)
		if err != nil {
			return nil, err
		}
		c.Company = MergeCompany(loaded, c.Company)
	}
	return &c, nil
}

// ApplyEnv overrides file values with API_PORT, API_ENV, BACKEND_URL and STATIC_DIR.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("API_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("API_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
	}
}

func (c *Config) applyDefaults() {
	c.Company = MergeCompany(form.Defaults(), c.Company)
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	t := &c.Backend.Timeouts
	if t.Metrics == 0 {
		t.Metrics = session.DefaultTimeouts.Metrics
	}
	if t.Insight == 0 {
		t.Insight = session.DefaultTimeouts.Insight
	}
	if t.Simulation == 0 {
		t.Simulation = session.DefaultTimeouts.Simulation
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = append([]string(nil), DefaultOrigins...)
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = DefaultStaticDir
	}
	if c.DevBackend.Port == "" {
		c.DevBackend.Port = DefaultDevPort
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	t := c.Backend.Timeouts
	if t.Metrics < 0 || t.Insight < 0 || t.Simulation < 0 {
		return errors.New("backend.timeouts must not be negative")
	}
	if c.Server.SessionTTL < 0 {
		return errors.New("server.session_ttl must not be negative")
	}
	// The default company must itself be a valid submission.
	if _, errs := form.Validate(c.Company, true); len(errs) > 0 {
		field := errs.Fields()[0]
		return fmt.Errorf("company config invalid: %s: %s", field, errs[field])
	}
	return nil
}

// Timeouts converts the backend timeouts for the session controller.
func (c *Config) Timeouts() session.Timeouts {
	t := c.Backend.Timeouts
	return session.Timeouts{Metrics: t.Metrics, Insight: t.Insight, Simulation: t.Simulation}
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

type companyFileWrapper struct {
	Company form.Fields `yaml:"company"`
}

func loadCompanyFile(path string) (form.Fields, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return form.Fields{}, err
	}
	var w companyFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return form.Fields{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Company, nil
}

// MergeCompany overlays non-empty fields from override onto base.
func MergeCompany(base, override form.Fields) form.Fields {
	out := base
	for _, p := range []struct {
		dst *string
		src string
	}{
		{&out.Revenue, override.Revenue},
		{&out.NPS, override.NPS},
		{&out.RDSpend, override.RDSpend},
		{&out.Regions, override.Regions},
		{&out.RetentionRate, override.RetentionRate},
		{&out.Name, override.Name},
		{&out.Industry, override.Industry},
		{&out.Region, override.Region},
	} {
		if p.src != "" {
			*p.dst = p.src
		}
	}
	return out
}
