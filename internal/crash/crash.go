/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics and invariant violations into reports next to the workspace backups.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "scenewriter/internal/log"
	"scenewriter/internal/storage"
	"scenewriter/internal/telemetry"
	"scenewriter/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the workspace manifest (if provided). live, when set, supplies the
// in-memory state to autosave instead of the last loaded manifest.
//
// Usage: defer crash.Recover(ws, live)
func Recover(ws *storage.Workspace, live func() storage.Manifest) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(ws, "crash", fmt.Sprintf("Panic: %v", r), stack)
		if ws != nil {
			autosave(l, ws, live)
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

func autosave(l *slog.Logger, ws *storage.Workspace, live func() storage.Manifest) {
	snap := *ws
	if live != nil {
		func() {
			// the live state may be what panicked
			defer func() { _ = recover() }()
			snap.Manifest = live()
		}()
	}
	if path, err := storage.AutosaveCrashSnapshot(&snap); err != nil {
		l.Error("autosave crash snapshot failed", slog.Any("err", err))
	} else {
		l.Info("autosave crash snapshot written", slog.String("path", path))
	}
}

// Diagnostics returns a sink for invariant violations. Each violation is logged
// and written as a diagnostic report; the process keeps running.
func Diagnostics(ws *storage.Workspace) func(error) {
	return func(err error) {
		if err == nil {
			return
		}
		l := applog.WithComponent("crash")
		path, werr := writeReport(ws, "diagnostic", fmt.Sprintf("Invariant violation: %v", err), debug.Stack())
		if werr != nil {
			l.Error("diagnostic report failed", slog.Any("err", werr))
			return
		}
		l.Warn("invariant violation reported", slog.Any("err", err), slog.String("report", path))
		telemetry.Event("invariant_violation", nil)
	}
}

func writeReport(ws *storage.Workspace, kind, headline string, stack []byte) (string, error) {
	dir := os.TempDir()
	if ws != nil && ws.Root != "" {
		dir = filepath.Join(ws.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", kind, stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Scene Writer %s Report\n", kind)
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ws != nil {
		_, _ = fmt.Fprintf(&buf, "Workspace: %s\n", ws.Root)
		_, _ = fmt.Fprintf(&buf, "Manifest: %s\n", ws.ManifestPath)
	}
	_, _ = fmt.Fprintf(&buf, "\n%s\n\n", headline)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	if kind == "crash" {
		// optionally upload anonymized crash report (opt-in via env)
		telemetry.UploadCrash(buf.Bytes())
	}
	return path, nil
}
