/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables (and a local .env file) are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Workspace      string `yaml:"workspace"` // default workspace directory for the CLI
}

type EditorConfig struct {
	DefaultBackground string `yaml:"default_background"`
	LineMode          string `yaml:"line_mode"`   // "cursor" | "frame"
	MaxHistory        int    `yaml:"max_history"` // 0 means unlimited
}

type ExportConfig struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	Scale     int  `yaml:"scale"`
	TotalMs   int  `yaml:"animation_total_ms"`
	StepMs    int  `yaml:"animation_step_ms"`
	GIFDither bool `yaml:"gif_dither"`
	// FontFile is a TTF/OTF used for dialogue text; empty uses the built-in bitmap face.
	FontFile string `yaml:"font_file"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type StorageConfig struct {
	// Postgres enables mirroring workspaces into Postgres. The DSN is kept in the OS keyring.
	Postgres      bool   `yaml:"postgres"`
	WorkspaceName string `yaml:"workspace_name"`
	NoIndex       bool   `yaml:"no_index"` // skip the SQLite search index on save
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
	Storage       StorageConfig `yaml:"storage"`
	Server        ServerConfig  `yaml:"server"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Workspace: "."},
		Editor:        EditorConfig{DefaultBackground: "backgrounds/1.png", LineMode: "cursor", MaxHistory: 0},
		Export:        ExportConfig{Width: 960, Height: 540, Scale: 2, TotalMs: 3000, StepMs: 100},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Storage:       StorageConfig{},
		Server:        ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile        = "SCW_CONFIG"
	EnvWorkspace         = "SCW_WORKSPACE"
	EnvTelemetryOptIn    = "SCW_TELEMETRY_OPT_IN"
	EnvDefaultBackground = "SCW_DEFAULT_BACKGROUND"
	EnvLineMode          = "SCW_LINE_MODE"
	EnvMaxHistory        = "SCW_MAX_HISTORY"
	EnvServerAddr        = "SCW_ADDR"
	EnvPostgresDSN       = "SCW_PG_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SCW_LOG_LEVEL"
	EnvLogFormat = "SCW_LOG_FORMAT"
	EnvLogSource = "SCW_LOG_SOURCE"
	EnvLogFile   = "SCW_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "SceneWriter"
	keyringDSN     = "postgres_dsn"
)

// secretStore abstracts the keyring; tests use keyring.MockInit.
var secretStore SecretStore = osKeyring{}

type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. SCW_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SceneWriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SceneWriter")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "scenewriter")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads .env and the user config file (if present), applies defaults, and merges environment overrides.
// It also returns the Postgres DSN: SCW_PG_DSN wins over the keyring entry.
func Load() (AppConfig, string, error) {
	_ = LoadDotEnv()
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	dsn := strings.TrimSpace(os.Getenv(EnvPostgresDSN))
	if dsn == "" {
		dsn, _ = secretStore.Get(keyringService, keyringDSN)
	}
	return cfg, dsn, nil
}

// Save writes the user config YAML and persists the DSN into the OS keyring (if non-empty).
func Save(cfg AppConfig, dsn string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if dsn != "" {
		if err := secretStore.Set(keyringService, keyringDSN, dsn); err != nil {
			return err
		}
	}
	return nil
}

// ForgetDSN removes the stored Postgres DSN from the keyring.
func ForgetDSN() error {
	err := secretStore.Delete(keyringService, keyringDSN)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.Workspace); s != "" {
		dst.General.Workspace = s
	}
	// editor
	if s := strings.TrimSpace(src.Editor.DefaultBackground); s != "" {
		dst.Editor.DefaultBackground = s
	}
	if s := strings.TrimSpace(src.Editor.LineMode); s != "" {
		dst.Editor.LineMode = strings.ToLower(s)
	}
	if src.Editor.MaxHistory > 0 {
		dst.Editor.MaxHistory = src.Editor.MaxHistory
	}
	// export
	if src.Export.Width > 0 {
		dst.Export.Width = src.Export.Width
	}
	if src.Export.Height > 0 {
		dst.Export.Height = src.Export.Height
	}
	if src.Export.Scale > 0 {
		dst.Export.Scale = src.Export.Scale
	}
	if src.Export.TotalMs > 0 {
		dst.Export.TotalMs = src.Export.TotalMs
	}
	if src.Export.StepMs > 0 {
		dst.Export.StepMs = src.Export.StepMs
	}
	dst.Export.GIFDither = src.Export.GIFDither
	if src.Export.FontFile != "" {
		dst.Export.FontFile = src.Export.FontFile
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// storage
	dst.Storage.Postgres = src.Storage.Postgres
	dst.Storage.NoIndex = src.Storage.NoIndex
	if s := strings.TrimSpace(src.Storage.WorkspaceName); s != "" {
		dst.Storage.WorkspaceName = s
	}
	// server
	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	if len(src.Server.AllowedOrigins) > 0 {
		dst.Server.AllowedOrigins = append([]string(nil), src.Server.AllowedOrigins...)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvWorkspace)); v != "" {
		cfg.General.Workspace = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v, ok := os.LookupEnv(EnvDefaultBackground); ok {
		// an explicitly empty value means scenes start without background
		cfg.Editor.DefaultBackground = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLineMode)); v != "" {
		cfg.Editor.LineMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxHistory)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Editor.MaxHistory = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"general.workspace":         EnvWorkspace,
		"general.telemetry_opt_in":  EnvTelemetryOptIn,
		"editor.default_background": EnvDefaultBackground,
		"editor.line_mode":          EnvLineMode,
		"editor.max_history":        EnvMaxHistory,
		"server.addr":               EnvServerAddr,
		"logging.level":             EnvLogLevel,
		"logging.format":            EnvLogFormat,
		"logging.source":            EnvLogSource,
		"logging.file":              EnvLogFile,
	}[key]
	if env == "" {
		return "", false
	}
	if _, ok := os.LookupEnv(env); ok {
		return env, true
	}
	return "", false
}

// AnimationTiming returns the typewriter total duration and frame step.
func (e ExportConfig) AnimationTiming() (total, step time.Duration) {
	d := Defaults().Export
	t, s := e.TotalMs, e.StepMs
	if t <= 0 {
		t = d.TotalMs
	}
	if s <= 0 {
		s = d.StepMs
	}
	return time.Duration(t) * time.Millisecond, time.Duration(s) * time.Millisecond
}
