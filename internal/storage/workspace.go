/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scenewriter/internal/domain"
	"scenewriter/internal/history"
	applog "scenewriter/internal/log"
)

const (
	ManifestFileName = "scenes.json"
	BackupsDirName   = "backups"

	// ManifestVersion is written into every manifest.
	ManifestVersion = 1
)

// Standard subfolders of a workspace.
var standardSubDirs = []string{
	"backgrounds",
	"characters",
	"exports",
	BackupsDirName,
}

// Manifest is the persisted form of a workspace: the live sequence plus the snapshot stack.
type Manifest struct {
	Version      int                      `json:"version"`
	Sequence     []domain.Scene           `json:"sequence"`
	CurrentIndex int                      `json:"currentIndex"`
	History      []history.Snapshot       `json:"history"`
	Backups      map[int]history.Snapshot `json:"backups,omitempty"`
	Session      *Session                 `json:"session,omitempty"`
	SavedAt      time.Time                `json:"savedAt"`
}

// Session records an open snapshot editing session so it survives a restart.
type Session struct {
	LoadedIndex *int `json:"loadedSnapshotIndex,omitempty"`
	Modified    bool `json:"modified"`
}

// NewManifest builds a manifest from live state.
func NewManifest(seq domain.Sequence, snapshots []history.Snapshot, backups map[int]history.Snapshot) Manifest {
	seq = seq.Clone()
	if snapshots == nil {
		snapshots = []history.Snapshot{}
	}
	if len(backups) == 0 {
		backups = nil
	}
	return Manifest{
		Version:      ManifestVersion,
		Sequence:     seq.Scenes,
		CurrentIndex: seq.Current,
		History:      snapshots,
		Backups:      backups,
	}
}

// Live returns the sequence stored in the manifest.
func (m Manifest) Live() domain.Sequence {
	seq := domain.Sequence{Scenes: m.Sequence, Current: m.CurrentIndex}
	return seq.Clone()
}

// Workspace keeps track of the workspace state loaded/saved from disk.
// Root is the directory containing scenes.json and the asset folders.
type Workspace struct {
	Root         string
	ManifestPath string
	Manifest     Manifest
}

// InitWorkspace creates a new workspace directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given manifest transactionally.
func InitWorkspace(root string, m Manifest) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}

	ws := &Workspace{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Manifest:     m,
	}
	if err := Save(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Open loads an existing workspace from the given root directory.
// If the current manifest cannot be read, parsed or validated, it will attempt the last backup.
func Open(root string) (*Workspace, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err == nil {
		var m Manifest
		if err = ValidateManifest(b); err == nil {
			err = json.Unmarshal(b, &m)
		}
		if err == nil {
			return &Workspace{Root: root, ManifestPath: mpath, Manifest: m}, nil
		}
	}
	l.Warn("manifest unreadable, trying latest backup", slog.Any("err", err))
	m, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	return &Workspace{Root: root, ManifestPath: mpath, Manifest: *m}, nil
}

// OpenOrInit opens the workspace at root, creating one with a single scene on
// defaultBackground when no manifest exists yet.
func OpenOrInit(root, defaultBackground string) (*Workspace, error) {
	if _, err := os.Stat(filepath.Join(root, ManifestFileName)); errors.Is(err, os.ErrNotExist) {
		return InitWorkspace(root, NewManifest(domain.NewSequence(defaultBackground), nil, nil))
	}
	return Open(root)
}

// Save writes the current Workspace.Manifest to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(ws *Workspace) error {
	if ws == nil {
		return errors.New("nil Workspace")
	}
	if ws.Root == "" || ws.ManifestPath == "" {
		return errors.New("invalid Workspace: missing paths")
	}
	ws.Manifest.Version = ManifestVersion
	ws.Manifest.SavedAt = time.Now().UTC()
	if ws.Manifest.Sequence == nil {
		ws.Manifest.Sequence = []domain.Scene{}
	}
	if ws.Manifest.History == nil {
		ws.Manifest.History = []history.Snapshot{}
	}
	data, err := json.MarshalIndent(ws.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current manifest exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(ws.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		if cerr := copyFile(ws.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(ws.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(ws.ManifestPath); err == nil {
		_ = os.Remove(ws.ManifestPath)
	}
	if rerr := os.Rename(temp, ws.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory manifest next to the backups without
// touching scenes.json. It returns the written path.
func AutosaveCrashSnapshot(ws *Workspace) (string, error) {
	if ws == nil || ws.Root == "" {
		return "", errors.New("invalid Workspace: missing root")
	}
	data, err := json.MarshalIndent(ws.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup tries to open the latest timestamped backup that parses and validates.
func openFromLatestBackup(root string) (*Manifest, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = fmt.Errorf("read backup: %w", err)
			continue
		}
		if err := ValidateManifest(b); err != nil {
			lastErr = err
			continue
		}
		var m Manifest
		if err := json.Unmarshal(b, &m); err != nil {
			lastErr = fmt.Errorf("parse backup: %w", err)
			continue
		}
		return &m, nil
	}
	return nil, lastErr
}
