/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strings"
)

func trim(s string) string { return strings.TrimSpace(s) }

// NewScene returns an empty scene with a fresh id and the given background.
func NewScene(background string) Scene {
	return Scene{ID: newID(), Background: background, Characters: []Character{}, Dialogue: []DialogueLine{}}
}

// Clone returns a structurally independent copy.
func (s Scene) Clone() Scene {
	out := s
	out.Characters = append(make([]Character, 0, len(s.Characters)), s.Characters...)
	out.Dialogue = append(make([]DialogueLine, 0, len(s.Dialogue)), s.Dialogue...)
	return out
}

// HasCharacter reports whether a character with imageRef is placed.
func (s *Scene) HasCharacter(imageRef string) bool {
	for _, c := range s.Characters {
		if c.ImageRef == imageRef {
			return true
		}
	}
	return false
}

// ToggleCharacter removes the placement for imageRef if present, otherwise appends
// a new placement. It returns true when the character was added.
func (s *Scene) ToggleCharacter(name, imageRef string) bool {
	for i, c := range s.Characters {
		if c.ImageRef == imageRef {
			s.Characters = append(s.Characters[:i:i], s.Characters[i+1:]...)
			return false
		}
	}
	s.Characters = append(s.Characters, Character{Name: name, ImageRef: imageRef, PlacementID: newID()})
	return true
}

// CommitLine overwrites the line at the cursor, or appends and points the cursor at
// the new line when the cursor is at the end. Empty text is rejected.
func (s *Scene) CommitLine(speaker, text string) bool {
	text = trim(text)
	if text == "" {
		return false
	}
	line := DialogueLine{Speaker: trim(speaker), Text: text}
	if s.Cursor < len(s.Dialogue) {
		s.Dialogue[s.Cursor] = line
		return true
	}
	s.Dialogue = append(s.Dialogue, line)
	s.Cursor = len(s.Dialogue) - 1
	return true
}

// CurrentLine returns the line at the cursor, if any.
func (s *Scene) CurrentLine() (DialogueLine, bool) {
	if s.Cursor >= 0 && s.Cursor < len(s.Dialogue) {
		return s.Dialogue[s.Cursor], true
	}
	return DialogueLine{}, false
}

// StepBack moves the cursor to the previous line.
func (s *Scene) StepBack() bool {
	if s.Cursor <= 0 {
		return false
	}
	s.Cursor--
	return true
}

// StepForward moves the cursor towards the append position.
func (s *Scene) StepForward() bool {
	if s.Cursor >= len(s.Dialogue) {
		return false
	}
	s.Cursor++
	return true
}

// Reset wipes the scene content but keeps its id.
func (s *Scene) Reset(background string) {
	s.Background = background
	s.Characters = []Character{}
	s.Dialogue = []DialogueLine{}
	s.Cursor = 0
	s.Annotation = ""
}

// Exportable reports whether the scene has at least one line or a non-empty annotation.
func (s *Scene) Exportable() bool {
	return len(s.Dialogue) > 0 || trim(s.Annotation) != ""
}

// IsBlank is true when the scene carries no content and its background is none or
// the given default.
func (s *Scene) IsBlank(defaultBackground string) bool {
	return len(s.Dialogue) == 0 && len(s.Characters) == 0 && trim(s.Annotation) == "" &&
		(s.Background == "" || s.Background == defaultBackground)
}

// Validate asserts the scene invariants.
func (s *Scene) Validate() error {
	if s.Cursor < 0 || s.Cursor > len(s.Dialogue) {
		return fmt.Errorf("%w: scene %s cursor %d outside [0,%d]", ErrInvariant, s.ID, s.Cursor, len(s.Dialogue))
	}
	seen := make(map[string]struct{}, len(s.Characters))
	for _, c := range s.Characters {
		if _, dup := seen[c.ImageRef]; dup {
			return fmt.Errorf("%w: scene %s duplicate character %q", ErrInvariant, s.ID, c.ImageRef)
		}
		seen[c.ImageRef] = struct{}{}
	}
	return nil
}
