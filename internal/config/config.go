package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DataConfig points at the two published JSON documents. Each value may
// be a local path or an http(s) URL.
type DataConfig struct {
	// Exams is the flat exam list (all_exams.json).
	Exams string `yaml:"exams" json:"exams"`
	// Summary is the optional manifest (data_summary.json).
	Summary string `yaml:"summary" json:"summary"`
	// CacheDir holds ETag/Last-Modified metadata and bodies for URL sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// CalendarConfig controls exported ICS documents.
type CalendarConfig struct {
	ProductID  string `yaml:"product_id" json:"product_id"`
	UIDDomain  string `yaml:"uid_domain" json:"uid_domain"`
	FilePrefix string `yaml:"file_prefix" json:"file_prefix"`
}

// Preferences is the user-facing state that survives restarts.
type Preferences struct {
	// Theme is "light" or "dark".
	Theme string `yaml:"theme" json:"theme"`
	// Reminders are minutes-before-start offsets, kept sorted ascending.
	Reminders []int `yaml:"reminders" json:"reminders"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone naive exam timestamps are written in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron spec (e.g. "*/30 * * * *") for reloading data.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Data        DataConfig     `yaml:"data" json:"data"`
	Calendar    CalendarConfig `yaml:"calendar" json:"calendar"`
	Preferences Preferences    `yaml:"preferences" json:"preferences"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Asia/Shanghai",
		LogLevel:    "info",
		RefreshCron: "*/30 * * * *",
		Data: DataConfig{
			Exams:    "data/all_exams.json",
			Summary:  "data/data_summary.json",
			CacheDir: "./cache/data",
		},
		Calendar: CalendarConfig{
			ProductID:  "-//examsync//NJUPT Exam Sync//ZH",
			UIDDomain:  "njupt-exam-sync",
			FilePrefix: "NJUPT_Exams_",
		},
		Preferences: Preferences{
			Theme:     "light",
			Reminders: []int{30, 60},
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled or older
// config files still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Data.Exams == "" {
		c.Data.Exams = def.Data.Exams
	}
	// An empty Summary is allowed: the manifest is optional.
	if c.Data.CacheDir == "" {
		c.Data.CacheDir = def.Data.CacheDir
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = def.Calendar.ProductID
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = def.Calendar.UIDDomain
	}
	if c.Calendar.FilePrefix == "" {
		c.Calendar.FilePrefix = def.Calendar.FilePrefix
	}

	switch c.Preferences.Theme {
	case "light", "dark":
	default:
		c.Preferences.Theme = def.Preferences.Theme
	}
	if c.Preferences.Reminders == nil {
		c.Preferences.Reminders = def.Preferences.Reminders
	}
	c.Preferences.Reminders = cleanReminders(c.Preferences.Reminders)
}

// cleanReminders drops non-positive values and duplicates and sorts the
// rest. An explicitly empty list stays empty (no reminders).
func cleanReminders(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, m := range in {
		if m <= 0 {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically: parent dir (0700), temp file in
// the same directory, fsync, chmod 0600, rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".examsync-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// SavePreferences replaces the preferences stored at path and leaves every
// other field of the file as it is on disk.
func SavePreferences(path string, prefs Preferences) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	cfg.Preferences = prefs
	return Save(path, cfg)
}

// ApplyEnv overrides selected fields from the environment, after .env files
// have been loaded by the caller.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("EXAMSYNC_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("EXAMSYNC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("EXAMSYNC_EXAMS"); v != "" {
		c.Data.Exams = v
	}
	if v := os.Getenv("EXAMSYNC_SUMMARY"); v != "" {
		c.Data.Summary = v
	}
}
