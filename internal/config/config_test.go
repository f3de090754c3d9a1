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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

// isolate points the config file at a temp dir and mocks the keyring.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvPostgresDSN, "")
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if dsn != "" {
		t.Fatalf("expected no dsn, got %q", dsn)
	}
	if cfg.Editor.DefaultBackground != "backgrounds/1.png" || cfg.Editor.LineMode != "cursor" || cfg.Export.Scale != 2 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := isolate(t)
	cfg := Defaults()
	cfg.Editor.LineMode = "frame"
	cfg.Editor.MaxHistory = 50
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	if err := Save(cfg, "postgres://u:p@localhost/scenes"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, dsn, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Editor.LineMode != "frame" || got.Editor.MaxHistory != 50 || len(got.Server.AllowedOrigins) != 1 {
		t.Fatalf("config not round-tripped: %#v", got)
	}
	if dsn != "postgres://u:p@localhost/scenes" {
		t.Fatalf("dsn should come from the keyring, got %q", dsn)
	}
	if err := ForgetDSN(); err != nil {
		t.Fatalf("ForgetDSN: %v", err)
	}
	if err := ForgetDSN(); err != nil {
		t.Fatalf("ForgetDSN on missing entry should be a no-op: %v", err)
	}
	if _, dsn, _ = Load(); dsn != "" {
		t.Fatalf("dsn should be gone, got %q", dsn)
	}
}

func TestEnvDSNWinsOverKeyring(t *testing.T) {
	isolate(t)
	if err := Save(Defaults(), "postgres://from-keyring"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv(EnvPostgresDSN, "postgres://from-env")
	if _, dsn, _ := Load(); dsn != "postgres://from-env" {
		t.Fatalf("expected env dsn, got %q", dsn)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestEnvOverridesEditor(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDefaultBackground, "")
	t.Setenv(EnvLineMode, "FRAME")
	t.Setenv(EnvMaxHistory, "7")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.DefaultBackground != "" || cfg.Editor.LineMode != "frame" || cfg.Editor.MaxHistory != 7 {
		t.Fatalf("editor overrides not applied: %#v", cfg.Editor)
	}
	if env, ok := EnvOverrideFor("editor.line_mode"); !ok || env != EnvLineMode {
		t.Fatalf("EnvOverrideFor(editor.line_mode) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("server.addr"); ok {
		t.Fatalf("server.addr is not overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/scw.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/scw.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/scw.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/scw.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("SCW_TEST_A=from-file\nSCW_TEST_B=from-file\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SCW_TEST_A", "from-env")
	t.Setenv("SCW_TEST_B", "")
	_ = os.Unsetenv("SCW_TEST_B")
	if err := LoadDotEnv(env, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("SCW_TEST_A"); got != "from-env" {
		t.Fatalf("existing env should win, got %q", got)
	}
	if got := os.Getenv("SCW_TEST_B"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestAnimationTimingDefaults(t *testing.T) {
	total, step := ExportConfig{}.AnimationTiming()
	if total != 3*time.Second || step != 100*time.Millisecond {
		t.Fatalf("unexpected timing %v/%v", total, step)
	}
}
