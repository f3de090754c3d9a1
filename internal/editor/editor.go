/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns the live scene sequence, the edit buffer, the history stack and
// the snapshot editing session. Every command runs under one lock so commands never
// interleave; a command either is rejected without side effects or is applied fully.
package editor

import (
	"log/slog"
	"sync"

	"scenewriter/internal/domain"
	"scenewriter/internal/history"
	applog "scenewriter/internal/log"
)

// LineMode selects how AdvanceLine moves on after committing.
type LineMode string

const (
	// LineModeCursor keeps the scene and moves the cursor past the committed line.
	LineModeCursor LineMode = "cursor"
	// LineModeFrame starts a new scene carrying over background and characters.
	LineModeFrame LineMode = "frame"
)

// ParseLineMode maps a config value to a LineMode, defaulting to cursor.
func ParseLineMode(s string) LineMode {
	if LineMode(s) == LineModeFrame {
		return LineModeFrame
	}
	return LineModeCursor
}

// Options configure an Editor.
type Options struct {
	DefaultBackground string
	LineMode          LineMode
	// MaxHistory caps the snapshot stack (0 means unlimited).
	MaxHistory int
	// Diagnostics receives invariant violations. They are never returned to callers.
	Diagnostics func(error)
}

// Session tracks whether the live surface mirrors a stored snapshot.
type Session struct {
	LoadedIndex *int `json:"loadedSnapshotIndex"`
	Modified    bool `json:"modified"`
}

// Loaded returns the loaded snapshot index, if any.
func (s Session) Loaded() (int, bool) {
	if s.LoadedIndex == nil {
		return 0, false
	}
	return *s.LoadedIndex, true
}

// State is a read-only copy of everything the editor holds, apart from snapshots.
type State struct {
	Sequence     domain.Sequence   `json:"sequence"`
	Buffer       domain.EditBuffer `json:"buffer"`
	Session      Session           `json:"session"`
	HistoryDepth int               `json:"historyDepth"`
	Revision     uint64            `json:"revision"`
}

// Editor is the single controller for scene state.
type Editor struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	seq      domain.Sequence
	buf      domain.EditBuffer
	hist     *history.Stack
	session  Session
	revision uint64

	lmu       sync.Mutex
	listeners map[int]func(State)
	nextID    int
}

// New returns an editor holding one empty scene.
func New(opts Options) *Editor {
	if opts.LineMode == "" {
		opts.LineMode = LineModeCursor
	}
	return &Editor{
		opts:      opts,
		log:       applog.WithComponent("editor"),
		seq:       domain.NewSequence(opts.DefaultBackground),
		hist:      history.NewStack(history.Config{MaxDepth: opts.MaxHistory}),
		listeners: make(map[int]func(State)),
	}
}

// DefaultBackground returns the background used for fresh scenes.
func (e *Editor) DefaultBackground() string { return e.opts.DefaultBackground }

// History exposes the snapshot stack for read access by exporters and storage.
func (e *Editor) History() *history.Stack { return e.hist }

// State returns a deep copy of the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Editor) stateLocked() State {
	st := State{
		Sequence:     e.seq.Clone(),
		Buffer:       e.buf,
		Session:      Session{Modified: e.session.Modified},
		HistoryDepth: e.hist.Count(),
		Revision:     e.revision,
	}
	if i, ok := e.session.Loaded(); ok {
		st.Session.LoadedIndex = &i
	}
	return st
}

// Subscribe registers fn to receive the state after every applied command.
// The returned func removes the subscription.
func (e *Editor) Subscribe(fn func(State)) func() {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.lmu.Lock()
		delete(e.listeners, id)
		e.lmu.Unlock()
	}
}

// Restore replaces the whole editor content, e.g. when a workspace is opened.
// The editing session is cleared.
func (e *Editor) Restore(seq domain.Sequence, snapshots []history.Snapshot, backups map[int]history.Snapshot) {
	_ = e.apply("restore", func() error {
		e.seq = seq.Clone()
		e.seq.Ensure(e.opts.DefaultBackground)
		e.hist.Load(snapshots, backups)
		e.session = Session{}
		e.syncBufferLocked()
		return nil
	})
}

// Resume reopens a persisted editing session. An index outside the stack is rejected
// and leaves the session closed.
func (e *Editor) Resume(s Session) error {
	return e.apply("resume_session", func() error {
		i, ok := s.Loaded()
		if !ok || i < 0 || i >= e.hist.Count() {
			return ErrRejected
		}
		e.session = Session{LoadedIndex: &i, Modified: s.Modified}
		return nil
	})
}

// apply runs fn under the command lock. Rejections leave no trace; applied commands
// bump the revision, get their invariants checked and are broadcast to subscribers.
func (e *Editor) apply(op string, fn func() error) error {
	e.mu.Lock()
	if err := fn(); err != nil {
		e.mu.Unlock()
		if IsRejected(err) {
			e.log.Debug("command rejected", slog.String("op", op))
		}
		return err
	}
	e.revision++
	if err := e.seq.Validate(); err != nil {
		e.log.Error("invariant violated", slog.String("op", op), slog.Any("err", err))
		if e.opts.Diagnostics != nil {
			e.opts.Diagnostics(err)
		}
		e.seq.Ensure(e.opts.DefaultBackground)
	}
	st := e.stateLocked()
	e.mu.Unlock()
	e.log.Debug("command applied", slog.String("op", op), slog.Int("history", st.HistoryDepth), slog.Int("scenes", st.Sequence.Len()))
	e.notify(st)
	return nil
}

func (e *Editor) notify(st State) {
	e.lmu.Lock()
	fns := make([]func(State), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.lmu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (e *Editor) current() *domain.Scene {
	e.seq.Ensure(e.opts.DefaultBackground)
	return e.seq.CurrentScene()
}

// markModifiedLocked flags the session dirty if a snapshot is loaded.
func (e *Editor) markModifiedLocked() {
	if e.session.LoadedIndex != nil {
		e.session.Modified = true
	}
}

// syncBufferLocked loads the buffer from the line under the cursor. At the append
// position the speaker is kept and the text cleared.
func (e *Editor) syncBufferLocked() {
	sc := e.current()
	if line, ok := sc.CurrentLine(); ok {
		e.buf = domain.EditBuffer{Speaker: line.Speaker, Text: line.Text}
		return
	}
	e.buf.Text = ""
}
