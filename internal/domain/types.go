/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"

	"github.com/google/uuid"
)

// This file defines the core data model of the scene writer: scenes composed of a
// background, placed characters, a dialogue transcript with a cursor and an annotation,
// plus the ordered sequence that holds them. All types serialize to plain nested JSON
// records so the workspace manifest stays human-readable.

// ErrInvariant is returned by Validate when a model invariant does not hold.
// It signals a programming error, never user input.
var ErrInvariant = errors.New("domain: invariant violated")

// newID is swapped in tests for deterministic identifiers.
var newID = uuid.NewString

// DialogueLine is a single spoken line.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Character is a sprite placed on a scene. ImageRef is the identity used for toggling.
type Character struct {
	Name        string `json:"name"`
	ImageRef    string `json:"imageRef"`
	PlacementID string `json:"placementId"`
}

// Scene is one composable frame.
type Scene struct {
	ID         string         `json:"id"`
	Background string         `json:"background,omitempty"` // empty means none
	Characters []Character    `json:"characters"`
	Dialogue   []DialogueLine `json:"dialogue"`
	// Cursor is in [0, len(Dialogue)]; len(Dialogue) means the next commit appends.
	Cursor     int    `json:"cursor"`
	Annotation string `json:"annotation,omitempty"`
}

// Sequence is the ordered list of scenes plus the current pointer.
type Sequence struct {
	Scenes  []Scene `json:"scenes"`
	Current int     `json:"currentIndex"`
}

// EditBuffer holds typed but uncommitted input. It is merged into committed
// dialogue only by an explicit commit, advance or snapshot capture.
type EditBuffer struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Empty reports whether the buffer carries no text worth committing.
func (b EditBuffer) Empty() bool { return trim(b.Text) == "" }

// Line converts the buffer into a dialogue line.
func (b EditBuffer) Line() DialogueLine {
	return DialogueLine{Speaker: trim(b.Speaker), Text: trim(b.Text)}
}
