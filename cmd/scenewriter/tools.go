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
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"scenewriter/internal/api"
	"scenewriter/internal/assets"
	"scenewriter/internal/config"
	"scenewriter/internal/editor"
	"scenewriter/internal/export"
	"scenewriter/internal/storage"
)

func runSearch(ctx context.Context, a *app, args []string) error {
	var q storage.SearchQuery
	var words []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--speaker="):
			q.Speaker = strings.TrimPrefix(arg, "--speaker=")
		case strings.HasPrefix(arg, "--type="):
			q.Types = strings.Split(strings.TrimPrefix(arg, "--type="), ",")
		default:
			words = append(words, arg)
		}
	}
	q.Text = strings.Join(words, " ")
	if q.Text == "" && q.Speaker == "" {
		speakers, err := storage.Speakers(ctx, a.ws.Root)
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(speakers)) {
			fmt.Printf("%-20s %d lines\n", name, speakers[name])
		}
		return nil
	}
	res, err := storage.Search(ctx, a.ws.Root, q)
	if err != nil {
		return err
	}
	printResults(res)
	return nil
}

func printResults(res []storage.SearchResult) {
	if len(res) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range res {
		text := r.Snippet
		if r.Speaker != "" {
			text = r.Speaker + ": " + text
		}
		fmt.Printf("scene %d  %-10s %s\n", r.SceneNo, r.Type, text)
	}
}

func runServe(ctx context.Context, a *app, _ []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv := api.NewServer(api.Deps{
		Editor:   a.ed,
		Exporter: a.orchestrator(),
		Catalog:  a.catalog,
		Persist:  a.save,
		Search: func(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
			return storage.Search(ctx, a.ws.Root, q)
		},
		OnExport: func(ctx context.Context, format string, rep export.Report) {
			a.exported(ctx, format, "http", rep, 0)
		},
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	})
	fmt.Printf("Serving %s on http://%s\n", a.ws.Root, a.cfg.Server.Addr)
	return srv.Run(ctx, a.cfg.Server.Addr)
}

func runPack(a *app, sub string, args []string) error {
	if len(args) < 1 {
		return errors.New("pack requires <zip>")
	}
	switch sub {
	case "export":
		n, err := assets.ExportPack(a.ws.Root, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Packed %d assets into %s\n", n, args[0])
	case "install":
		n, err := assets.InstallPack(a.ws.Root, args[0])
		if err != nil {
			return err
		}
		a.catalog.Rescan()
		fmt.Printf("Installed %d assets\n", n)
	default:
		return fmt.Errorf("unknown pack command %q", sub)
	}
	return nil
}

func runAsset(a *app, kind string, args []string) error {
	if len(args) < 1 {
		return errors.New("asset requires <file>")
	}
	k := assets.Kind(kind)
	if k != assets.KindBackground && k != assets.KindCharacter {
		return fmt.Errorf("unknown asset kind %q", kind)
	}
	as, err := a.catalog.Ingest(args[0], k)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s %q as %s\n", as.Kind, as.Name, as.Ref)
	return nil
}

func runRemote(ctx context.Context, a *app, sub string, args []string) error {
	if a.dsn == "" {
		return fmt.Errorf("no Postgres DSN: set %s or run config set-dsn", config.EnvPostgresDSN)
	}
	switch sub {
	case "push":
		a.ws.Manifest = a.manifest()
		if err := a.push(ctx); err != nil {
			return err
		}
		fmt.Println("Pushed", a.remoteName())
		return nil
	}

	pg, err := storage.OpenPG(ctx, a.dsn)
	if err != nil {
		return err
	}
	defer pg.Close()
	switch sub {
	case "pull":
		m, v, err := pg.Get(ctx, a.remoteName())
		if err != nil {
			return err
		}
		a.ed.Restore(m.Live(), m.History, m.Backups)
		if m.Session != nil {
			_ = a.ed.Resume(editor.Session{LoadedIndex: m.Session.LoadedIndex, Modified: m.Session.Modified})
		}
		fmt.Printf("Pulled %s (version %d)\n", a.remoteName(), v)
	case "list":
		infos, err := pg.List(ctx)
		if err != nil {
			return err
		}
		for _, w := range infos {
			fmt.Printf("%-24s v%-4d %s\n", w.Name, w.Version, w.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
	case "delete":
		if err := pg.Delete(ctx, a.remoteName()); err != nil {
			return err
		}
		fmt.Println("Deleted", a.remoteName())
	case "search":
		res, err := pg.Search(ctx, a.remoteName(), storage.SearchQuery{Text: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		printResults(res)
	default:
		return fmt.Errorf("unknown remote command %q", sub)
	}
	return nil
}

func runConfig(cfg config.AppConfig, args []string) error {
	switch args[0] {
	case "path":
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(p)
	case "set-dsn":
		if len(args) < 2 {
			return errors.New("set-dsn requires <dsn>")
		}
		if err := config.Save(cfg, args[1]); err != nil {
			return err
		}
		fmt.Println("Postgres DSN stored in the OS keyring.")
	case "forget-dsn":
		if err := config.ForgetDSN(); err != nil {
			return err
		}
		fmt.Println("Postgres DSN removed.")
	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}
	return nil
}
