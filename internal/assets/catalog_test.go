/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package assets

import (
	"archive/zip"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, p string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestDefaultsListed(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if n := len(c.List(KindBackground)); n != 4 {
		t.Fatalf("expected 4 default backgrounds, got %d", n)
	}
	chars := c.List(KindCharacter)
	if len(chars) != 4 || chars[0].Name != "Rosetta" {
		t.Fatalf("unexpected default characters: %+v", chars)
	}
	if len(c.List("")) != 8 {
		t.Fatalf("expected 8 assets overall")
	}
}

func TestIngestNamesWithoutExtension(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(t.TempDir(), "Mira_-_Dawn.png")
	writePNG(t, src, 4, 8)

	c := NewCatalog(root)
	a, err := c.Ingest(src, KindCharacter)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if a.Name != "Mira_-_Dawn" || a.Ref != "characters/Mira_-_Dawn.png" {
		t.Fatalf("unexpected asset %+v", a)
	}
	img, err := c.Load(a.Ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if _, ok := c.Lookup(a.Ref); !ok {
		t.Fatalf("ingested asset not registered")
	}
	if _, err := c.Ingest(filepath.Join(root, "notes.txt"), KindCharacter); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestLoadMissingAndEscaping(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if _, err := c.Load("backgrounds/1.png"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset for missing default file, got %v", err)
	}
	if _, err := c.Load("../outside.png"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected escape to be refused, got %v", err)
	}
	if _, err := c.Load(""); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected error for empty ref")
	}
}

func TestRescanKeepsDefaultNames(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "backgrounds", "1.png"), 2, 2)
	writePNG(t, filepath.Join(root, "backgrounds", "street.png"), 2, 2)
	c := NewCatalog(root)
	a, ok := c.Lookup("backgrounds/1.png")
	if !ok || a.Name != "Background 1" {
		t.Fatalf("default name should win, got %+v", a)
	}
	if a, ok := c.Lookup("backgrounds/street.png"); !ok || a.Name != "street" {
		t.Fatalf("scanned asset missing: %+v", a)
	}
}

func TestExportAndInstallPack(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "backgrounds", "night.png"), 2, 2)
	writePNG(t, filepath.Join(src, "characters", "ana.png"), 2, 2)
	zipPath := filepath.Join(t.TempDir(), "pack.zip")
	n, err := ExportPack(src, zipPath)
	if err != nil || n != 2 {
		t.Fatalf("export pack: n=%d err=%v", n, err)
	}

	dst := t.TempDir()
	writePNG(t, filepath.Join(dst, "characters", "ana.png"), 1, 1)
	installed, err := InstallPack(dst, zipPath)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if installed != 1 {
		t.Fatalf("expected 1 installed (existing skipped), got %d", installed)
	}
	if _, err := os.Stat(filepath.Join(dst, "backgrounds", "night.png")); err != nil {
		t.Fatalf("background not installed: %v", err)
	}
}

func TestInstallPackIgnoresStrayEntries(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"../../escape.png", "readme.txt", "scripts/x.png"} {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte("x"))
	}
	_ = zw.Close()
	_ = f.Close()

	dst := t.TempDir()
	n, err := InstallPack(dst, zipPath)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing installed, n=%d err=%v", n, err)
	}
}
