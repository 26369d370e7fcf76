package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DBPath             string              `toml:"db_path"`
	Addr               string              `toml:"addr"`
	NotifyCommand      []string            `toml:"notify_command"`
	NotifyBuffer       int                 `toml:"notify_buffer"`
	AssignmentKeywords map[string][]string `toml:"assignment_keywords"`
	HelperKeywords     map[string][]string `toml:"helper_keywords"`
	FallbackHelpers    []string            `toml:"fallback_helpers"`
	Path               string              `toml:"-"`
}

// Load reads TOML config from path, or the default location when path
// is empty. A missing file at the default location yields the built-in
// defaults rather than an error.
func Load(path string) (Config, error) {
	resolved := path
	usingDefault := false
	if resolved == "" {
		resolved = defaultConfigPath()
		usingDefault = true
	}
	if strings.HasPrefix(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(resolved, "~")
		trimmed = strings.TrimPrefix(trimmed, "\\")
		trimmed = strings.TrimPrefix(trimmed, "/")
		resolved = filepath.Join(home, trimmed)
	}
	resolved = filepath.Clean(resolved)

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if usingDefault && os.IsNotExist(err) {
			cfg := Config{Path: resolved}
			cfg.applyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	cfg.Path = resolved
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = defaultDBPath()
	}
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8791"
	}
	if c.NotifyBuffer <= 0 {
		c.NotifyBuffer = 64
	}
	if len(c.AssignmentKeywords) == 0 {
		c.AssignmentKeywords = DefaultAssignmentKeywords()
	}
	if len(c.HelperKeywords) == 0 {
		c.HelperKeywords = DefaultHelperKeywords()
	}
	if len(c.FallbackHelpers) == 0 {
		c.FallbackHelpers = []string{"architect", "solo-dev"}
	}
}

// DefaultAssignmentKeywords maps task-text keywords to the roles (or
// agent ids) that should pick such tasks up.
func DefaultAssignmentKeywords() map[string][]string {
	return map[string][]string{
		"dev":      {"dev", "solo-dev"},
		"frontend": {"dev", "ux-designer"},
		"backend":  {"dev", "architect"},
		"database": {"architect", "dev"},
		"api":      {"dev", "architect"},
		"ui":       {"ux-designer"},
		"ux":       {"ux-designer"},
		"test":     {"qa"},
		"qa":       {"qa"},
		"doc":      {"tech-writer"},
		"document": {"tech-writer"},
		"design":   {"ux-designer"},
		"plan":     {"pm", "analyst"},
		"analyze":  {"analyst"},
		"review":   {"qa"},
		"schema":   {"architect"},
		"bug":      {"qa", "solo-dev", "architect"},
		"error":    {"qa", "solo-dev", "architect"},
	}
}

// DefaultHelperKeywords maps issue-text keywords to the roles best
// suited to answer a help request.
func DefaultHelperKeywords() map[string][]string {
	return map[string][]string{
		"database":    {"architect", "dev"},
		"sql":         {"architect", "dev"},
		"schema":      {"architect"},
		"ui":          {"ux-designer", "dev"},
		"css":         {"ux-designer", "dev"},
		"design":      {"ux-designer"},
		"layout":      {"ux-designer"},
		"test":        {"qa", "solo-dev"},
		"bug":         {"qa", "solo-dev", "architect"},
		"error":       {"qa", "solo-dev", "architect"},
		"fail":        {"qa", "solo-dev"},
		"requirement": {"pm", "analyst"},
		"spec":        {"pm", "analyst"},
		"feature":     {"pm", "analyst"},
		"auth":        {"architect", "dev"},
		"security":    {"architect", "qa"},
		"performance": {"architect", "dev"},
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".teamops/config.toml"
	}
	return filepath.Join(home, ".teamops", "config.toml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".teamops/team.db"
	}
	return filepath.Join(home, ".teamops", "team.db")
}
