// internal/config/config.go
//
// This package handles configuration and the .workbench directory structure.
// Every project opened in the workbench gets a .workbench/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/workbench/internal/shell"
)

const (
	// WorkbenchDir is the name of the directory we create in each project
	WorkbenchDir = ".workbench"

	defaultProviderID = "anthropic"
	defaultBridgeHost = "127.0.0.1"
	defaultBridgePort = 8787
)

const defaultProjectConfigYAML = `# workbench project configuration
version: 1

# Model provider used by the onboarding wizard and the settings view.
provider:
  id: anthropic
  # model: claude-3-5-sonnet-20240620
  # base_url: https://api.anthropic.com

# Playback intervals for the simulated backends (Go duration strings).
sequences:
  clone_tick: 300ms
  deploy_tick: 150ms
  plan_tick: 2s
  test_tick: 400ms
  reply_delay: 500ms

# Local HTTP bridge exposing the shell state. Disabled by default.
bridge:
  enabled: false
  host: 127.0.0.1
  port: 8787

ui:
  default_tab: dashboard

# Optional seed override file, relative to the project directory.
# seed_path: seed.yaml
`

// ProviderConfig selects the model provider.
type ProviderConfig struct {
	ID      string `yaml:"id"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// SequenceConfig holds playback intervals as duration strings.
type SequenceConfig struct {
	CloneTick  string `yaml:"clone_tick"`
	DeployTick string `yaml:"deploy_tick"`
	PlanTick   string `yaml:"plan_tick"`
	TestTick   string `yaml:"test_tick"`
	ReplyDelay string `yaml:"reply_delay"`
}

// Intervals is SequenceConfig with every field parsed.
type Intervals struct {
	CloneTick  time.Duration
	DeployTick time.Duration
	PlanTick   time.Duration
	TestTick   time.Duration
	ReplyDelay time.Duration
}

// BridgeConfig configures the local event bridge.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// UIConfig captures TUI preferences.
type UIConfig struct {
	DefaultTab string `yaml:"default_tab"`
}

// ProjectConfig models .workbench/config.yaml.
type ProjectConfig struct {
	Version   int            `yaml:"version"`
	Provider  ProviderConfig `yaml:"provider"`
	Sequences SequenceConfig `yaml:"sequences"`
	Bridge    BridgeConfig   `yaml:"bridge"`
	UI        UIConfig       `yaml:"ui"`
	SeedPath  string         `yaml:"seed_path,omitempty"`
}

// Config holds the runtime configuration for the workbench.
type Config struct {
	// ProjectDir is the directory the workbench was started in
	ProjectDir string

	// WorkbenchProjectDir is ProjectDir/.workbench
	WorkbenchProjectDir string

	Project ProjectConfig
}

// InitWorkbenchDir creates the .workbench directory structure in the given
// project directory.
//
// Structure created:
// .workbench/
// ├── config.yaml
// ├── logs/         <- workbench.log (diagnostics) and journey.log
// └── workflows/    <- extra workflow definitions (*.yaml)
func InitWorkbenchDir(projectDir string) error {
	root := filepath.Join(projectDir, WorkbenchDir)

	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "workflows"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:          projectDir,
		WorkbenchProjectDir: filepath.Join(projectDir, WorkbenchDir),
		Project:             defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WorkbenchProjectDir, "logs")
}

// WorkflowsDir returns the directory scanned for extra workflow definitions
func (c *Config) WorkflowsDir() string {
	return filepath.Join(c.WorkbenchProjectDir, "workflows")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WorkbenchProjectDir, "config.yaml")
}

// SeedPath returns the resolved seed override path, or "" for the embedded
// default.
func (c *Config) SeedPath() string {
	return c.Project.SeedPath
}

// Intervals returns the parsed playback intervals.
func (c *Config) Intervals() Intervals {
	iv, _ := c.Project.Sequences.parse()
	return iv
}

// DefaultTab returns the tab the TUI opens on.
func (c *Config) DefaultTab() shell.Tab {
	tab, err := shell.ParseTab(c.Project.UI.DefaultTab)
	if err != nil {
		return shell.TabDashboard
	}
	return tab
}

// Provider returns the configured provider selection.
func (c *Config) Provider() ProviderConfig {
	return c.Project.Provider
}

// SetProvider updates the selected provider and persists the value back to
// .workbench/config.yaml. Model and base URL are cleared when empty so the
// provider preset applies.
func (c *Config) SetProvider(id, model, baseURL string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("config: provider id is required")
	}
	c.Project.Provider = ProviderConfig{
		ID:      id,
		Model:   strings.TrimSpace(model),
		BaseURL: strings.TrimSpace(baseURL),
	}
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

// DefaultBridge returns the bridge section of a fresh config: loopback,
// default port, disabled.
func DefaultBridge() BridgeConfig {
	return defaultProjectConfig().Bridge
}

// OverrideBridge replaces the bridge section for this run only. Nothing is
// written back to config.yaml. An empty host falls back to loopback.
func (c *Config) OverrideBridge(b BridgeConfig) error {
	b.Host = strings.TrimSpace(b.Host)
	if b.Host == "" {
		b.Host = defaultBridgeHost
	}
	if b.Port < 1 || b.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 1 and 65535")
	}
	c.Project.Bridge = b
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Provider.ID) == "" {
		pc.Provider.ID = defaultProviderID
	}
	seq := &pc.Sequences
	setDefault(&seq.CloneTick, "300ms")
	setDefault(&seq.DeployTick, "150ms")
	setDefault(&seq.PlanTick, "2s")
	setDefault(&seq.TestTick, "400ms")
	setDefault(&seq.ReplyDelay, "500ms")
	if strings.TrimSpace(pc.Bridge.Host) == "" {
		pc.Bridge.Host = defaultBridgeHost
	}
	if pc.Bridge.Port == 0 {
		pc.Bridge.Port = defaultBridgePort
	}
	if strings.TrimSpace(pc.UI.DefaultTab) == "" {
		pc.UI.DefaultTab = string(shell.TabDashboard)
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Provider.ID = strings.ToLower(strings.TrimSpace(pc.Provider.ID))
	pc.Provider.Model = strings.TrimSpace(pc.Provider.Model)
	pc.Provider.BaseURL = strings.TrimSpace(pc.Provider.BaseURL)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	pc.UI.DefaultTab = strings.ToLower(strings.TrimSpace(pc.UI.DefaultTab))
	pc.SeedPath = resolvePath(base, pc.SeedPath)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if strings.ContainsAny(pc.Provider.ID, " \t/") {
		return fmt.Errorf("provider.id %q must be a single identifier", pc.Provider.ID)
	}
	if _, err := pc.Sequences.parse(); err != nil {
		return err
	}
	if pc.Bridge.Port < 1 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 1 and 65535")
	}
	if _, err := shell.ParseTab(pc.UI.DefaultTab); err != nil {
		return fmt.Errorf("ui.default_tab: %w", err)
	}
	return nil
}

func (sc SequenceConfig) parse() (Intervals, error) {
	var iv Intervals
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"clone_tick", sc.CloneTick, &iv.CloneTick},
		{"deploy_tick", sc.DeployTick, &iv.DeployTick},
		{"plan_tick", sc.PlanTick, &iv.PlanTick},
		{"test_tick", sc.TestTick, &iv.TestTick},
		{"reply_delay", sc.ReplyDelay, &iv.ReplyDelay},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(strings.TrimSpace(f.raw))
		if err != nil {
			return Intervals{}, fmt.Errorf("sequences.%s: %w", f.name, err)
		}
		if d <= 0 {
			return Intervals{}, fmt.Errorf("sequences.%s must be positive", f.name)
		}
		*f.dst = d
	}
	return iv, nil
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.WorkbenchProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure workbench dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
