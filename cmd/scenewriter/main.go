/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"scenewriter/internal/config"
	"scenewriter/internal/crash"
	applog "scenewriter/internal/log"
	"scenewriter/internal/telemetry"
	"scenewriter/internal/version"
)

func usage() {
	fmt.Println("Scene Writer")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  scenewriter version|-v|--version                 Show version")
	fmt.Println("  scenewriter init <dir>                           Create a workspace at <dir>")
	fmt.Println("  scenewriter show <dir>                           Print the current scene")
	fmt.Println("  scenewriter import <dir> <script>                Replay a dialogue script into the workspace")
	fmt.Println("  scenewriter say <dir> <speaker> <text>           Add a dialogue line to the current scene")
	fmt.Println("  scenewriter next-line <dir> <speaker> <text>     Commit a line and move to the next one")
	fmt.Println("  scenewriter next-scene <dir> [<speaker> <text>]  Commit a line and start a new scene")
	fmt.Println("  scenewriter prev|next <dir>                      Move the cursor over committed lines")
	fmt.Println("  scenewriter bg <dir> <ref>                       Set the background of the current scene")
	fmt.Println("  scenewriter char <dir> <ref> [<name>]            Toggle a character in the current scene")
	fmt.Println("  scenewriter note <dir> <text>                    Set the scene annotation")
	fmt.Println("  scenewriter reset <dir>                          Clear the current scene")
	fmt.Println("  scenewriter undo <dir>                           Restore the newest snapshot")
	fmt.Println("  scenewriter history <dir>                        List stored snapshots")
	fmt.Println("  scenewriter load <dir> <index>                   Load a snapshot for editing")
	fmt.Println("  scenewriter save-snapshot <dir>                  Write the edited snapshot back")
	fmt.Println("  scenewriter delete-snapshot <dir> <index>        Delete a snapshot")
	fmt.Println("  scenewriter clear-history <dir>                  Drop all snapshots")
	fmt.Println("  scenewriter export <dir> [png|cbz|pdf|gif] [live|history]")
	fmt.Println("  scenewriter exports <dir>                        Show the export log")
	fmt.Println("  scenewriter search <dir> [--speaker=NAME] <query>")
	fmt.Println("  scenewriter asset background|character <dir> <file>")
	fmt.Println("  scenewriter pack export|install <dir> <zip>      Share assets as a zip pack")
	fmt.Println("  scenewriter remote push|pull|list|delete <dir>   Mirror workspaces in Postgres")
	fmt.Println("  scenewriter remote search <dir> <query>          Search the mirrored workspace")
	fmt.Println("  scenewriter config path|set-dsn <dsn>|forget-dsn")
	fmt.Println("  scenewriter serve <dir>                          Serve the HTTP and websocket API")
	fmt.Println()
	fmt.Println("<dir> may be - to use general.workspace from the config file.")
}

func main() {
	// logging from env first so config problems are visible
	applog.Init(applog.FromEnv())
	defer crash.Recover(nil, nil)
	l := applog.WithComponent("cli")

	if err := config.LoadDotEnv(".env"); err != nil {
		l.Warn("dotenv", slog.Any("err", err))
	}
	cfg, dsn, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l = applog.WithComponent("cli")

	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)
	defer telemetry.Flush(context.Background())

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	cmd := args[1]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("Scene Writer")
		fmt.Println(version.String())
		return
	case "config":
		need(args, 3, "config requires a subcommand")
		if err := runConfig(cfg, args[2:]); err != nil {
			fail(l, cmd, err)
		}
		return
	case "pack", "remote", "asset":
		need(args, 4, cmd+" requires a subcommand and <dir>")
		withApp(cfg, dsn, args[3], func(ctx context.Context, a *app) error {
			switch cmd {
			case "pack":
				return runPack(a, args[2], args[4:])
			case "remote":
				return runRemote(ctx, a, args[2], args[4:])
			default:
				return runAsset(a, args[2], args[4:])
			}
		})
		return
	}

	run, ok := commands[cmd]
	if !ok {
		usage()
		os.Exit(2)
	}
	need(args, 3, cmd+" requires <dir>")
	withApp(cfg, dsn, args[2], func(ctx context.Context, a *app) error {
		return run(ctx, a, args[3:])
	})
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"init":            runInit,
	"show":            runShow,
	"import":          runImport,
	"say":             runSay,
	"next-line":       runNextLine,
	"next-scene":      runNextScene,
	"prev":            runPrev,
	"next":            runNext,
	"bg":              runBackground,
	"char":            runCharacter,
	"note":            runNote,
	"reset":           runReset,
	"undo":            runUndo,
	"history":         runHistory,
	"load":            runLoad,
	"save-snapshot":   runSaveSnapshot,
	"delete-snapshot": runDeleteSnapshot,
	"clear-history":   runClearHistory,
	"export":          runExport,
	"exports":         runExports,
	"search":          runSearch,
	"serve":           runServe,
}

// withApp opens dir, runs fn and saves when fn changed the editor state.
func withApp(cfg config.AppConfig, dsn, dir string, fn func(ctx context.Context, a *app) error) {
	dir = workspaceDir(cfg, dir)
	ctx := applog.ContextWithWorkspace(context.Background(), dir)
	l := applog.WithComponent("cli")
	a, err := openApp(ctx, cfg, dsn, dir)
	if err != nil {
		fail(l, "open", err)
	}
	defer crash.Recover(a.ws, a.manifest)

	before := a.ed.State().Revision
	if err := fn(ctx, a); err != nil {
		fail(a.log, "command", err)
	}
	if a.ed.State().Revision != before {
		if err := a.save(ctx); err != nil {
			fail(a.log, "save", err)
		}
	}
}

// workspaceDir resolves "-" to the configured default workspace.
func workspaceDir(cfg config.AppConfig, dir string) string {
	if dir == "-" && cfg.General.Workspace != "" {
		return cfg.General.Workspace
	}
	return dir
}

func need(args []string, n int, msg string) {
	if len(args) < n {
		fmt.Println(msg)
		usage()
		os.Exit(2)
	}
}

func fail(l *slog.Logger, op string, err error) {
	l.Error(op+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func atoi(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return i, nil
}
