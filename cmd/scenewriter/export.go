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
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenewriter/internal/export"
	"scenewriter/internal/storage"
)

func runExport(ctx context.Context, a *app, args []string) error {
	format, src := "png", export.SourceLive
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	if len(args) > 1 {
		src = export.ParseSource(args[1])
	}
	o := a.orchestrator()
	outDir := filepath.Join(a.ws.Root, "exports")
	start := time.Now()

	var (
		rep    export.Report
		target string
		err    error
	)
	switch format {
	case "png":
		target = filepath.Join(outDir, string(src))
		var sink *export.DirSink
		if sink, err = export.NewDirSink(target); err == nil {
			rep, err = o.ExportAll(ctx, src, sink)
		}
	case "cbz", "pdf":
		target = filepath.Join(outDir, fmt.Sprintf("scenes_%s.%s", src, format))
		rep, err = exportFile(ctx, o, src, format, target)
	case "gif":
		var (
			item export.Item
			data []byte
		)
		item, data, err = o.ExportCurrentAnimated(ctx)
		if err == nil {
			target = filepath.Join(outDir, export.FileName(item.Ordinal, "gif"))
			if err = os.MkdirAll(outDir, 0o755); err == nil {
				err = os.WriteFile(target, data, 0o644)
			}
		}
		rep = export.Report{Source: export.SourceLive, Exported: 1}
	default:
		return fmt.Errorf("unknown export format %q (png, cbz, pdf, gif)", format)
	}
	if errors.Is(err, export.ErrNothingToExport) || errors.Is(err, export.ErrNoDialogueContent) {
		fmt.Println("Nothing to export:", err)
		return nil
	}
	if err != nil {
		return err
	}

	a.exported(ctx, format, target, rep, time.Since(start))
	fmt.Printf("Exported %d, skipped %d, failed %d -> %s\n", rep.Exported, rep.Skipped, rep.Failed, target)
	for _, ie := range rep.Errors {
		fmt.Printf("  scene %d: %v\n", ie.Ordinal, ie.Err)
	}
	return nil
}

// exportFile writes a single-file archive. The file is removed when nothing was exported.
func exportFile(ctx context.Context, o *export.Orchestrator, src export.Source, format, path string) (export.Report, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return export.Report{}, err
	}
	f, err := os.Create(path)
	if err != nil {
		return export.Report{}, err
	}
	title := "Scenes (" + string(src) + ")"
	var sink export.Sink
	if format == "pdf" {
		sink = export.NewPDFSink(f, title)
	} else {
		sink = export.NewCBZSink(f, title)
	}
	rep, err := o.ExportAll(ctx, src, sink)
	if err == nil && rep.Exported == 0 {
		err = export.ErrNothingToExport
	}
	if err == nil {
		err = sink.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return rep, err
}

func runExports(ctx context.Context, a *app, _ []string) error {
	recs, err := storage.ListExports(ctx, a.ws.Root, 20)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No exports yet.")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%s  %-4s %-7s exported %d skipped %d failed %d  %s\n",
			r.At.Local().Format("2006-01-02 15:04"), r.Format, r.Source, r.Exported, r.Skipped, r.Failed, r.Target)
	}
	return nil
}
