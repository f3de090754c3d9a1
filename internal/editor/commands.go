/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strings"

	"scenewriter/internal/domain"
	"scenewriter/internal/history"
)

// SetBuffer replaces the in-progress input.
func (e *Editor) SetBuffer(speaker, text string) error {
	return e.apply("set_buffer", func() error {
		e.buf.Speaker = speaker
		e.buf.Text = text
		e.markModifiedLocked()
		return nil
	})
}

// AddDialogueLine commits a line on the current scene without touching history.
func (e *Editor) AddDialogueLine(speaker, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrRejected
	}
	return e.apply("add_dialogue_line", func() error {
		sc := e.current()
		if !sc.CommitLine(speaker, text) {
			return ErrRejected
		}
		e.syncBufferLocked()
		e.markModifiedLocked()
		return nil
	})
}

// AdvanceLine snapshots the state, commits the line and moves on to the next one.
// The snapshot is taken unconditionally; empty text only skips the commit.
func (e *Editor) AdvanceLine(speaker, text string) error {
	return e.apply("advance_line", func() error {
		e.buf.Speaker, e.buf.Text = speaker, text
		e.pushLocked(history.Capture(e.seq, e.buf))
		sc := e.current()
		sc.CommitLine(speaker, text)
		if e.opts.LineMode == LineModeFrame {
			e.seq.DuplicateCurrentForNextLine()
		} else if sc.Cursor < len(sc.Dialogue) {
			sc.Cursor++
		}
		e.syncBufferLocked()
		e.markModifiedLocked()
		return nil
	})
}

// AdvanceScene snapshots the state, commits the line and starts a fresh scene.
func (e *Editor) AdvanceScene(speaker, text string) error {
	return e.apply("advance_scene", func() error {
		e.buf.Speaker, e.buf.Text = speaker, text
		e.pushLocked(history.Capture(e.seq, e.buf))
		e.current().CommitLine(speaker, text)
		e.seq.CreateScene(e.opts.DefaultBackground)
		e.buf.Text = ""
		e.markModifiedLocked()
		return nil
	})
}

// Undo restores the live sequence from the newest snapshot and ends any editing
// session, since the live surface no longer mirrors the loaded snapshot.
// An empty stack is a no-op.
func (e *Editor) Undo() error {
	return e.apply("undo", func() error {
		s, ok := e.hist.Pop()
		if !ok {
			return ErrRejected
		}
		e.seq = s.Sequence.Clone()
		e.seq.Ensure(e.opts.DefaultBackground)
		e.syncBufferLocked()
		e.session = Session{}
		return nil
	})
}

// ClearHistory empties the snapshot stack and ends any editing session.
// Live scene content is left alone; see ResetScene.
func (e *Editor) ClearHistory() error {
	return e.apply("clear_history", func() error {
		e.hist.Clear()
		e.session = Session{}
		return nil
	})
}

// ResetScene wipes the content of the current scene.
func (e *Editor) ResetScene() error {
	return e.apply("reset_scene", func() error {
		e.current().Reset(e.opts.DefaultBackground)
		e.buf = domain.EditBuffer{}
		e.markModifiedLocked()
		return nil
	})
}

// SetBackground sets the current scene background; empty means none.
func (e *Editor) SetBackground(ref string) error {
	return e.apply("set_background", func() error {
		e.current().Background = strings.TrimSpace(ref)
		e.markModifiedLocked()
		return nil
	})
}

// ToggleCharacter places or removes a character on the current scene.
func (e *Editor) ToggleCharacter(name, imageRef string) error {
	if strings.TrimSpace(imageRef) == "" {
		return ErrRejected
	}
	return e.apply("toggle_character", func() error {
		e.current().ToggleCharacter(name, imageRef)
		e.markModifiedLocked()
		return nil
	})
}

// SetAnnotation sets the current scene annotation.
func (e *Editor) SetAnnotation(text string) error {
	return e.apply("set_annotation", func() error {
		e.current().Annotation = text
		e.markModifiedLocked()
		return nil
	})
}

// PreviousLine steps the cursor back and loads that line into the buffer.
func (e *Editor) PreviousLine() error {
	return e.apply("previous_line", func() error {
		if !e.current().StepBack() {
			return ErrRejected
		}
		e.syncBufferLocked()
		return nil
	})
}

// NextLine steps the cursor forward and loads that line into the buffer.
func (e *Editor) NextLine() error {
	return e.apply("next_line", func() error {
		if !e.current().StepForward() {
			return ErrRejected
		}
		e.syncBufferLocked()
		return nil
	})
}
