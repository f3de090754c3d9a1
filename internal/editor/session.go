/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"time"

	"scenewriter/internal/domain"
	"scenewriter/internal/history"
)

// SnapshotInfo is one row of the history listing.
type SnapshotInfo struct {
	Index   int          `json:"index"`
	Preview domain.Scene `json:"preview"`
	TakenAt time.Time    `json:"takenAt"`
	Loaded  bool         `json:"loaded"`
}

// ListSnapshots returns every stored snapshot with the scene it was focused on.
func (e *Editor) ListSnapshots() []SnapshotInfo {
	e.mu.Lock()
	loaded, isLoaded := e.session.Loaded()
	all := e.hist.All()
	e.mu.Unlock()
	out := make([]SnapshotInfo, 0, len(all))
	for i, s := range all {
		sc, _ := s.Scene()
		out = append(out, SnapshotInfo{Index: i, Preview: sc, TakenAt: s.TakenAt, Loaded: isLoaded && loaded == i})
	}
	return out
}

// LoadSnapshotForEdit copies the focused scene of snapshot i into the live sequence.
// The scene replaces the live scene with the same id, or the one at the recorded
// index, and is appended when the live sequence is shorter.
func (e *Editor) LoadSnapshotForEdit(i int) error {
	return e.apply("load_snapshot", func() error {
		s, ok := e.hist.At(i)
		if !ok {
			return ErrRejected
		}
		sc, ok := s.Scene()
		if !ok {
			return ErrRejected
		}
		target := s.Sequence.Current
		for j := range e.seq.Scenes {
			if e.seq.Scenes[j].ID == sc.ID {
				target = j
				break
			}
		}
		e.seq.Current = e.seq.Replace(target, sc)
		idx := i
		e.session = Session{LoadedIndex: &idx}
		e.syncBufferLocked()
		return nil
	})
}

// DeleteSnapshot removes snapshot i. A session pointing at it ends; one pointing
// past it follows the shift.
func (e *Editor) DeleteSnapshot(i int) error {
	return e.apply("delete_snapshot", func() error {
		if !e.hist.Remove(i) {
			return ErrRejected
		}
		if li, ok := e.session.Loaded(); ok {
			switch {
			case li == i:
				e.session = Session{}
			case li > i:
				li--
				e.session.LoadedIndex = &li
			}
		}
		return nil
	})
}

// SaveLoadedSnapshot writes the live state back over the loaded snapshot, keeping the
// old one as backup. Unless the newest snapshot already is a blank page, a blank page
// is appended and becomes the loaded snapshot so editing can continue past history.
func (e *Editor) SaveLoadedSnapshot() error {
	return e.apply("save_snapshot", func() error {
		i, ok := e.session.Loaded()
		if !ok {
			return ErrNoSnapshotLoaded
		}
		if !e.hist.Replace(i, history.Capture(e.seq, e.buf)) {
			return ErrNoSnapshotLoaded
		}
		if tail, ok := e.hist.Tail(); ok && !history.IsBlank(tail, e.opts.DefaultBackground) {
			next := e.seq.Clone()
			next.CreateScene(e.opts.DefaultBackground)
			e.pushLocked(history.Capture(next, domain.EditBuffer{}))
			e.seq = next
			e.buf = domain.EditBuffer{Speaker: e.buf.Speaker}
			idx := e.hist.Count() - 1
			e.session.LoadedIndex = &idx
		}
		e.session.Modified = false
		return nil
	})
}

// pushLocked pushes s and shifts the loaded index by whatever the depth cap dropped.
func (e *Editor) pushLocked(s history.Snapshot) {
	before := e.hist.Count()
	e.hist.Push(s)
	dropped := before + 1 - e.hist.Count()
	if li, ok := e.session.Loaded(); ok && dropped > 0 {
		li -= dropped
		if li < 0 {
			e.session = Session{}
			return
		}
		e.session.LoadedIndex = &li
	}
}
