/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package assets

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "scenewriter/internal/log"
)

const packManifest = "assetpack.manifest.txt"

// ExportPack zips the workspace asset directories (backgrounds/, characters/) into
// destZipPath with a short manifest at the archive root.
func ExportPack(root, destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "export_pack").With(slog.String("workspace", root))
	if strings.TrimSpace(root) == "" {
		return 0, errors.New("root is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Scene Writer Asset Pack\nCreated: %s\nWorkspace: %s\n", time.Now().Format(time.RFC3339), root)
	w, err := zw.Create(packManifest)
	if err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	added := 0
	for _, kind := range []Kind{KindBackground, KindCharacter} {
		dir := filepath.Join(root, kind.Dir())
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !isImage(p) {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			fw, err := zw.Create(filepath.ToSlash(rel))
			if err != nil {
				return err
			}
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if _, err := io.Copy(fw, f); err != nil {
				return err
			}
			added++
			return nil
		})
		if err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return added, fmt.Errorf("build zip: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("close zip: %w", err)
	}
	l.Info("asset pack exported", slog.Int("files", added), slog.String("zip", destZipPath))
	return added, nil
}

// InstallPack extracts images under backgrounds/ or characters/ from the pack into the
// workspace. Existing files are kept and entries anywhere else are ignored.
// It returns the number of installed files.
func InstallPack(root, packZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("assets"), "install_pack").With(slog.String("workspace", root))
	if strings.TrimSpace(root) == "" {
		return 0, errors.New("root is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		name := path.Clean(f.Name)
		if f.FileInfo().IsDir() || name == packManifest {
			continue
		}
		top, _, ok := strings.Cut(name, "/")
		if !ok || (top != KindBackground.Dir() && top != KindCharacter.Dir()) || strings.Contains(name, "..") || !isImage(name) {
			l.Warn("skip pack entry", slog.String("entry", f.Name))
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(name))
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("asset pack installed", slog.Int("files", installed))
	return installed, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
