/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets keeps the background and character catalog of a workspace and
// decodes the referenced images for rendering.
package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"

	applog "scenewriter/internal/log"
)

// Kind separates backgrounds from character sprites.
type Kind string

const (
	KindBackground Kind = "background"
	KindCharacter  Kind = "character"
)

// Dir is the workspace subdirectory holding assets of this kind.
func (k Kind) Dir() string {
	if k == KindCharacter {
		return "characters"
	}
	return "backgrounds"
}

// ErrUnknownAsset is returned when a ref is not in the catalog and not on disk.
var ErrUnknownAsset = errors.New("assets: unknown asset")

// Asset is a catalog entry. Ref is a slash separated path relative to the workspace.
type Asset struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
	Kind Kind   `json:"kind"`
}

// Built-in catalog shipped with every workspace.
var (
	DefaultBackgrounds = []Asset{
		{Name: "Background 1", Ref: "backgrounds/1.png", Kind: KindBackground},
		{Name: "Background 2", Ref: "backgrounds/2.png", Kind: KindBackground},
		{Name: "Background 3", Ref: "backgrounds/3.png", Kind: KindBackground},
		{Name: "Background 4", Ref: "backgrounds/4.png", Kind: KindBackground},
	}
	DefaultCharacters = []Asset{
		{Name: "Rosetta", Ref: "characters/Rosetta_-_Arete.webp", Kind: KindCharacter},
		{Name: "Lucia", Ref: "characters/Lucia_-_Crimson_Weave.webp", Kind: KindCharacter},
		{Name: "Selena", Ref: "characters/Selena_-_Pianissimo.webp", Kind: KindCharacter},
		{Name: "Luna", Ref: "characters/Luna_-_Oblivion.webp", Kind: KindCharacter},
	}
)

// Catalog lists known assets and caches decoded images. It is safe for concurrent use.
type Catalog struct {
	root string
	log  *slog.Logger

	mu     sync.RWMutex
	items  []Asset
	images map[string]image.Image
}

// NewCatalog returns a catalog for the workspace at root seeded with the defaults
// and anything already present in the asset directories.
func NewCatalog(root string) *Catalog {
	c := &Catalog{
		root:   root,
		log:    applog.WithComponent("assets"),
		images: make(map[string]image.Image),
	}
	c.items = append(c.items, DefaultBackgrounds...)
	c.items = append(c.items, DefaultCharacters...)
	c.Rescan()
	return c
}

// Root returns the workspace root.
func (c *Catalog) Root() string { return c.root }

// List returns the assets of kind in catalog order. An empty kind lists everything.
func (c *Catalog) List(kind Kind) []Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Asset, 0, len(c.items))
	for _, a := range c.items {
		if kind == "" || a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Lookup finds an asset by ref.
func (c *Catalog) Lookup(ref string) (Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.items {
		if a.Ref == ref {
			return a, true
		}
	}
	return Asset{}, false
}

// Rescan registers image files found under the asset directories.
func (c *Catalog) Rescan() {
	for _, kind := range []Kind{KindBackground, KindCharacter} {
		entries, err := os.ReadDir(filepath.Join(c.root, kind.Dir()))
		if err != nil {
			continue
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && isImage(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			c.register(Asset{Name: NameFromFile(n), Ref: kind.Dir() + "/" + n, Kind: kind})
		}
	}
}

func (c *Catalog) register(a Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.Ref == a.Ref {
			// the default catalog names win over file names
			if !isDefault(it.Ref) {
				c.items[i] = a
			}
			delete(c.images, a.Ref)
			return
		}
	}
	c.items = append(c.items, a)
}

// Ingest copies a user supplied file into the workspace and registers it.
// The asset name is the file name without extension.
func (c *Catalog) Ingest(path string, kind Kind) (Asset, error) {
	l := applog.WithOperation(c.log, "ingest").With(slog.String("file", path))
	if !isImage(path) {
		return Asset{}, fmt.Errorf("ingest %s: unsupported image type", path)
	}
	src, err := os.Open(path)
	if err != nil {
		return Asset{}, fmt.Errorf("open asset: %w", err)
	}
	defer func() { _ = src.Close() }()

	base := filepath.Base(path)
	dir := filepath.Join(c.root, kind.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Asset{}, fmt.Errorf("ensure asset dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, base))
	if err != nil {
		return Asset{}, fmt.Errorf("create asset: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return Asset{}, fmt.Errorf("copy asset: %w", err)
	}
	if err := dst.Close(); err != nil {
		return Asset{}, fmt.Errorf("close asset: %w", err)
	}
	a := Asset{Name: NameFromFile(base), Ref: kind.Dir() + "/" + base, Kind: kind}
	c.register(a)
	l.Info("asset ingested", slog.String("ref", a.Ref))
	return a, nil
}

// Load decodes the image behind ref, relative to the workspace root.
func (c *Catalog) Load(ref string) (image.Image, error) {
	if ref == "" {
		return nil, ErrUnknownAsset
	}
	c.mu.RLock()
	img, ok := c.images[ref]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}
	p, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, ref)
		}
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer func() { _ = f.Close() }()
	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	c.mu.Lock()
	c.images[ref] = img
	c.mu.Unlock()
	return img, nil
}

// resolve maps ref to a path inside the workspace. Absolute refs are used as is.
func (c *Catalog) resolve(ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes workspace", ErrUnknownAsset, ref)
	}
	return filepath.Join(c.root, clean), nil
}

// NameFromFile strips directory and extension.
func NameFromFile(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

func isDefault(ref string) bool {
	for _, a := range DefaultBackgrounds {
		if a.Ref == ref {
			return true
		}
	}
	for _, a := range DefaultCharacters {
		if a.Ref == ref {
			return true
		}
	}
	return false
}
