/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scenewriter/internal/assets"
	"scenewriter/internal/domain"
)

func solidPNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRasterRendererDrawsBackgroundAndBoxes(t *testing.T) {
	root := t.TempDir()
	solidPNG(t, filepath.Join(root, "backgrounds", "1.png"), color.RGBA{0, 200, 0, 255})
	r := NewRasterRenderer(assets.NewCatalog(root), nil)

	sc := domain.NewScene("backgrounds/1.png")
	sc.ToggleCharacter("Luna", "characters/Luna_-_Oblivion.webp") // missing file, placeholder
	sc.CommitLine("Luna", "Hello there")
	sc.Annotation = "chapter one"

	img, err := r.Render(context.Background(), NewView(sc), Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 960 || b.Dy() != 540 {
		t.Fatalf("unexpected size %v", b)
	}
	// top-left corner is plain background
	if _, g, _, _ := img.At(2, 200).RGBA(); g>>8 < 150 {
		t.Fatalf("expected green background at left edge")
	}

	big, err := r.Render(context.Background(), NewView(sc), Options{Scale: 2})
	if err != nil {
		t.Fatalf("render scaled: %v", err)
	}
	if big.Bounds().Dx() != 1920 {
		t.Fatalf("expected doubled width, got %d", big.Bounds().Dx())
	}
}

func TestRasterRendererFailsOnCorruptAsset(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "backgrounds", "bad.png")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewRasterRenderer(assets.NewCatalog(root), nil)
	if _, err := r.Render(context.Background(), NewView(domain.NewScene("backgrounds/bad.png")), Options{}); err == nil {
		t.Fatalf("expected decode error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, NewView(domain.NewScene("")), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestGIFEncoder(t *testing.T) {
	frames := []Frame{
		{Image: image.NewRGBA(image.Rect(0, 0, 8, 8)), Delay: 100 * time.Millisecond},
		{Image: image.NewRGBA(image.Rect(0, 0, 8, 8)), Delay: 100 * time.Millisecond},
	}
	data, err := GIFEncoder{Dither: true}.Encode(context.Background(), frames)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g.Image) != 2 || g.Delay[0] != 10 {
		t.Fatalf("unexpected gif: frames=%d delay=%v", len(g.Image), g.Delay)
	}
	if _, err := (GIFEncoder{}).Encode(context.Background(), nil); err == nil {
		t.Fatalf("expected error for no frames")
	}
}

func TestGIFEncoderRejectsNilFrame(t *testing.T) {
	frames := []Frame{{Delay: 100 * time.Millisecond}, {Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}}
	if _, err := (GIFEncoder{}).Encode(context.Background(), frames); err == nil {
		t.Fatalf("expected error for nil first frame")
	}
}
