package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
db_path = "/tmp/team.db"

[assignment_keywords]
ml = ["data-scientist"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/team.db" {
		t.Fatalf("db_path=%s", cfg.DBPath)
	}
	if cfg.Addr == "" || cfg.NotifyBuffer <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	// custom table replaces the built-in one entirely
	if _, ok := cfg.AssignmentKeywords["frontend"]; ok {
		t.Fatalf("custom table should not merge with defaults")
	}
	if roles := cfg.AssignmentKeywords["ml"]; len(roles) != 1 || roles[0] != "data-scientist" {
		t.Fatalf("ml roles=%v", roles)
	}
	// helper table untouched in the file keeps its defaults
	if _, ok := cfg.HelperKeywords["database"]; !ok {
		t.Fatalf("helper defaults missing")
	}
	if len(cfg.FallbackHelpers) != 2 || cfg.FallbackHelpers[0] != "architect" {
		t.Fatalf("fallback helpers=%v", cfg.FallbackHelpers)
	}
}

func TestDefaultKeywordTables(t *testing.T) {
	assign := DefaultAssignmentKeywords()
	cases := map[string][]string{
		"ui":       {"ux-designer"},
		"doc":      {"tech-writer"},
		"plan":     {"pm", "analyst"},
		"database": {"architect", "dev"},
	}
	for keyword, want := range cases {
		got := assign[keyword]
		if len(got) != len(want) {
			t.Fatalf("assignment %q=%v want=%v", keyword, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("assignment %q=%v want=%v", keyword, got, want)
			}
		}
	}

	helper := DefaultHelperKeywords()
	cases = map[string][]string{
		"sql":         {"architect", "dev"},
		"css":         {"ux-designer", "dev"},
		"bug":         {"qa", "solo-dev", "architect"},
		"requirement": {"pm", "analyst"},
	}
	for keyword, want := range cases {
		got := helper[keyword]
		if len(got) != len(want) {
			t.Fatalf("helper %q=%v want=%v", keyword, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("helper %q=%v want=%v", keyword, got, want)
			}
		}
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}
