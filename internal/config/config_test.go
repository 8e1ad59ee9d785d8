package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error on first run, got: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("first run should return defaults, got %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	cfg.Preferences.Theme = "dark"
	cfg.Preferences.Reminders = []int{1440, 15, 15, -3}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("loaded config does not match saved config.\nGot: %+v\nExpected: %+v", loaded, cfg)
	}
	if !reflect.DeepEqual(loaded.Preferences.Reminders, []int{15, 1440}) {
		t.Errorf("reminders should be cleaned on save, got %v", loaded.Preferences.Reminders)
	}
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen: \":8081\"\npreferences:\n  theme: neon\n  reminders: []\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Listen != ":8081" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Timezone != "Asia/Shanghai" || cfg.Calendar.FilePrefix != "NJUPT_Exams_" {
		t.Errorf("missing fields should take defaults: %+v", cfg)
	}
	if cfg.Preferences.Theme != "light" {
		t.Errorf("unknown theme should fall back to light, got %q", cfg.Preferences.Theme)
	}
	if len(cfg.Preferences.Reminders) != 0 {
		t.Errorf("explicit empty reminders must stay empty, got %v", cfg.Preferences.Reminders)
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected error when loading invalid yaml")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EXAMSYNC_LISTEN", ":7000")
	t.Setenv("EXAMSYNC_EXAMS", "https://example.com/all_exams.json")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Listen != ":7000" || cfg.Data.Exams != "https://example.com/all_exams.json" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unset env should leave defaults, got %q", cfg.LogLevel)
	}
}

func TestSavePreferences_KeepsOtherFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9000"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	if err := SavePreferences(path, Preferences{Theme: "dark", Reminders: []int{}}); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Listen != "0.0.0.0:9000" {
		t.Errorf("listen changed to %q", loaded.Listen)
	}
	if loaded.Preferences.Theme != "dark" || len(loaded.Preferences.Reminders) != 0 {
		t.Errorf("preferences not saved: %+v", loaded.Preferences)
	}
}
