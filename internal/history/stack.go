/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps the snapshot stack used for undo and history browsing.
package history

import (
	"sync"
	"time"

	"scenewriter/internal/domain"
)

// Snapshot is a deep copy of the sequence taken before a history-affecting command.
// Stored snapshots are never mutated; accessors hand out clones.
type Snapshot struct {
	Sequence domain.Sequence `json:"sequence"`
	TakenAt  time.Time       `json:"takenAt"`
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Sequence: s.Sequence.Clone(), TakenAt: s.TakenAt}
}

// Scene returns the scene the snapshot was focused on.
func (s Snapshot) Scene() (domain.Scene, bool) {
	q := s.Sequence
	if sc := q.CurrentScene(); sc != nil {
		return sc.Clone(), true
	}
	return domain.Scene{}, false
}

// Capture deep-copies seq and folds a non-empty edit buffer into the copy: the line at
// an in-bounds cursor is overwritten, otherwise the buffer is appended as a new line.
// The live sequence is not touched.
func Capture(seq domain.Sequence, buf domain.EditBuffer) Snapshot {
	cp := seq.Clone()
	if cur := cp.CurrentScene(); cur != nil && !buf.Empty() {
		line := buf.Line()
		if cur.Cursor < len(cur.Dialogue) {
			cur.Dialogue[cur.Cursor] = line
		} else {
			cur.Dialogue = append(cur.Dialogue, line)
		}
	}
	return Snapshot{Sequence: cp, TakenAt: time.Now()}
}

// IsBlank reports whether the snapshot's focused scene is an untouched page.
func IsBlank(s Snapshot, defaultBackground string) bool {
	sc, ok := s.Scene()
	if !ok {
		return true
	}
	return sc.IsBlank(defaultBackground)
}

// Config controls depth caps.
type Config struct {
	// MaxDepth drops the oldest entries once exceeded (0 means unlimited).
	MaxDepth int
}

// Stack is a LIFO of snapshots with a side map of backups keyed by position.
// It is safe for concurrent use.
type Stack struct {
	cfg Config
	mu  sync.Mutex

	items   []Snapshot
	backups map[int]Snapshot
}

func NewStack(cfg Config) *Stack {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	return &Stack{cfg: cfg, backups: make(map[int]Snapshot)}
}

// Push appends a snapshot at the tail.
func (st *Stack) Push(s Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.items = append(st.items, s.Clone())
	st.enforceCapsLocked()
}

// Pop removes and returns the tail snapshot; ok is false on an empty stack.
func (st *Stack) Pop() (Snapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.items)
	if n == 0 {
		return Snapshot{}, false
	}
	s := st.items[n-1]
	st.items = st.items[:n-1]
	delete(st.backups, n-1)
	return s, true
}

// Clear empties the stack and its backup map.
func (st *Stack) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.items = nil
	st.backups = make(map[int]Snapshot)
}

// Count is the current depth.
func (st *Stack) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items)
}

// At returns a copy of snapshot i.
func (st *Stack) At(i int) (Snapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if i < 0 || i >= len(st.items) {
		return Snapshot{}, false
	}
	return st.items[i].Clone(), true
}

// Tail returns a copy of the newest snapshot.
func (st *Stack) Tail() (Snapshot, bool) {
	st.mu.Lock()
	n := len(st.items)
	st.mu.Unlock()
	return st.At(n - 1)
}

// All returns copies of every snapshot, oldest first.
func (st *Stack) All() []Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Snapshot, len(st.items))
	for i, s := range st.items {
		out[i] = s.Clone()
	}
	return out
}

// Replace overwrites entry i, keeping the previous value as its backup.
func (st *Stack) Replace(i int, s Snapshot) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if i < 0 || i >= len(st.items) {
		return false
	}
	st.backups[i] = st.items[i]
	st.items[i] = s.Clone()
	return true
}

// Backup returns the backup captured for entry i by Replace.
func (st *Stack) Backup(i int) (Snapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	b, ok := st.backups[i]
	if !ok {
		return Snapshot{}, false
	}
	return b.Clone(), true
}

// Backups returns a copy of the backup map.
func (st *Stack) Backups() map[int]Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[int]Snapshot, len(st.backups))
	for k, v := range st.backups {
		out[k] = v.Clone()
	}
	return out
}

// Remove deletes entry i and shifts later backups down by one.
func (st *Stack) Remove(i int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if i < 0 || i >= len(st.items) {
		return false
	}
	st.items = append(st.items[:i:i], st.items[i+1:]...)
	st.shiftBackupsLocked(i)
	return true
}

// Load replaces the whole content, e.g. after reading a workspace from disk.
// Backups pointing outside the stack are dropped.
func (st *Stack) Load(items []Snapshot, backups map[int]Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.items = make([]Snapshot, len(items))
	for i, s := range items {
		st.items[i] = s.Clone()
	}
	st.backups = make(map[int]Snapshot, len(backups))
	for k, v := range backups {
		if k >= 0 && k < len(st.items) {
			st.backups[k] = v.Clone()
		}
	}
	st.enforceCapsLocked()
}

// Stats returns current sizes for diagnostics.
func (st *Stack) Stats() (depth int, backups int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.items), len(st.backups)
}

// shiftBackupsLocked drops the backup at i and moves every later key down by one.
func (st *Stack) shiftBackupsLocked(i int) {
	next := make(map[int]Snapshot, len(st.backups))
	for k, v := range st.backups {
		switch {
		case k < i:
			next[k] = v
		case k > i:
			next[k-1] = v
		}
	}
	st.backups = next
}

func (st *Stack) enforceCapsLocked() {
	if st.cfg.MaxDepth <= 0 {
		return
	}
	for len(st.items) > st.cfg.MaxDepth {
		// drop the oldest entry
		st.items = append([]Snapshot{}, st.items[1:]...)
		st.shiftBackupsLocked(0)
	}
}
