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
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"scenewriter/internal/assets"
	"scenewriter/internal/config"
	"scenewriter/internal/crash"
	"scenewriter/internal/editor"
	"scenewriter/internal/export"
	applog "scenewriter/internal/log"
	"scenewriter/internal/storage"
	"scenewriter/internal/telemetry"
	"scenewriter/internal/textlayout"
)

// app is one opened workspace with its editor.
type app struct {
	cfg     config.AppConfig
	dsn     string
	ws      *storage.Workspace
	ed      *editor.Editor
	catalog *assets.Catalog
	log     *slog.Logger

	saveMu sync.Mutex
}

func openApp(ctx context.Context, cfg config.AppConfig, dsn, dir string) (*app, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	l := applog.WithComponent("cli").With(slog.String("root", root))
	ws, err := storage.OpenOrInit(root, cfg.Editor.DefaultBackground)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, dsn: dsn, ws: ws, catalog: assets.NewCatalog(root), log: l}
	a.ed = editor.New(editor.Options{
		DefaultBackground: cfg.Editor.DefaultBackground,
		LineMode:          editor.ParseLineMode(cfg.Editor.LineMode),
		MaxHistory:        cfg.Editor.MaxHistory,
		Diagnostics:       crash.Diagnostics(ws),
	})
	m := ws.Manifest
	a.ed.Restore(m.Live(), m.History, m.Backups)
	if m.Session != nil {
		if err := a.ed.Resume(editor.Session{LoadedIndex: m.Session.LoadedIndex, Modified: m.Session.Modified}); err != nil {
			l.Warn("stored editing session dropped", slog.Any("err", err))
		}
	}
	if !cfg.Storage.NoIndex {
		if rebuilt, err := storage.DetectAndRebuildIndex(ctx, root, m); err != nil {
			l.Warn("search index unavailable", slog.Any("err", err))
		} else if rebuilt {
			l.Info("search index rebuilt")
		}
	}
	return a, nil
}

// manifest snapshots the live editor state in persisted form.
func (a *app) manifest() storage.Manifest {
	st := a.ed.State()
	m := storage.NewManifest(st.Sequence, a.ed.History().All(), a.ed.History().Backups())
	if i, ok := st.Session.Loaded(); ok {
		m.Session = &storage.Session{LoadedIndex: &i, Modified: st.Session.Modified}
	}
	return m
}

// save writes the manifest, refreshes the search index and mirrors to Postgres when enabled.
func (a *app) save(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	a.ws.Manifest = a.manifest()
	if err := storage.Save(a.ws); err != nil {
		return err
	}
	if !a.cfg.Storage.NoIndex {
		if err := storage.UpdateIndex(ctx, a.ws.Root, a.ws.Manifest); err != nil {
			a.log.Warn("index update failed", slog.Any("err", err))
		}
	}
	if a.cfg.Storage.Postgres && a.dsn != "" {
		if err := a.push(ctx); err != nil {
			a.log.Warn("postgres mirror failed", slog.Any("err", err))
		}
	}
	return nil
}

func (a *app) remoteName() string {
	if a.cfg.Storage.WorkspaceName != "" {
		return a.cfg.Storage.WorkspaceName
	}
	return filepath.Base(a.ws.Root)
}

func (a *app) push(ctx context.Context) error {
	pg, err := storage.OpenPG(ctx, a.dsn)
	if err != nil {
		return err
	}
	defer pg.Close()
	v, err := pg.Put(ctx, a.remoteName(), a.ws.Manifest)
	if err != nil {
		return err
	}
	a.log.Debug("workspace mirrored", slog.String("name", a.remoteName()), slog.Int64("version", v))
	return nil
}

func (a *app) orchestrator() *export.Orchestrator {
	ec := a.cfg.Export
	o := export.NewOrchestrator(
		a.ed,
		a.ed.History(),
		export.NewRasterRenderer(a.catalog, a.fonts()),
		export.GIFEncoder{Dither: ec.GIFDither},
		export.Options{Width: ec.Width, Height: ec.Height, Scale: float64(ec.Scale)},
	)
	total, step := ec.AnimationTiming()
	o.Typewriter = export.Typewriter{Total: total, Step: step}
	return o
}

// fonts returns the dialogue font provider, falling back to the bitmap face
// when no font file is configured or it cannot be parsed.
func (a *app) fonts() textlayout.Provider {
	path := a.cfg.Export.FontFile
	if path == "" {
		return textlayout.BasicProvider{}
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadFile("dialogue", path); err != nil {
		a.log.Warn("font not loaded, using built-in face", slog.String("path", path), slog.Any("err", err))
		return textlayout.BasicProvider{}
	}
	return textlayout.OTProvider{Lib: lib, Fallback: textlayout.BasicProvider{}}
}

// exported appends to the export log and sends the anonymous export event.
func (a *app) exported(ctx context.Context, format, target string, rep export.Report, took time.Duration) {
	rec := storage.ExportRecord{
		Format:   format,
		Source:   string(rep.Source),
		Exported: rep.Exported,
		Skipped:  rep.Skipped,
		Failed:   rep.Failed,
		Target:   target,
	}
	if err := storage.RecordExport(ctx, a.ws.Root, rec); err != nil {
		a.log.Warn("export log write failed", slog.Any("err", err))
	}
	telemetry.Exported(telemetry.ExportStats{
		Format:   format,
		Source:   string(rep.Source),
		Exported: rep.Exported,
		Skipped:  rep.Skipped,
		Failed:   rep.Failed,
		Duration: took,
	})
}
