/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// NewSequence returns a sequence holding a single empty scene.
func NewSequence(defaultBackground string) Sequence {
	return Sequence{Scenes: []Scene{NewScene(defaultBackground)}}
}

// Len returns the number of scenes.
func (q *Sequence) Len() int { return len(q.Scenes) }

// Clone deep copies every scene.
func (q Sequence) Clone() Sequence {
	out := Sequence{Scenes: make([]Scene, len(q.Scenes)), Current: q.Current}
	for i := range q.Scenes {
		out.Scenes[i] = q.Scenes[i].Clone()
	}
	return out
}

// CurrentScene returns a pointer to the current scene, or nil for an empty sequence.
func (q *Sequence) CurrentScene() *Scene {
	if q.Current < 0 || q.Current >= len(q.Scenes) {
		return nil
	}
	return &q.Scenes[q.Current]
}

// Ensure re-populates an empty sequence and clamps the current pointer.
func (q *Sequence) Ensure(defaultBackground string) {
	if len(q.Scenes) == 0 {
		q.Scenes = []Scene{NewScene(defaultBackground)}
	}
	if q.Current < 0 {
		q.Current = 0
	}
	if q.Current >= len(q.Scenes) {
		q.Current = len(q.Scenes) - 1
	}
}

// CreateScene appends a fresh scene and makes it current.
func (q *Sequence) CreateScene(defaultBackground string) *Scene {
	q.Scenes = append(q.Scenes, NewScene(defaultBackground))
	q.Current = len(q.Scenes) - 1
	return &q.Scenes[q.Current]
}

// DuplicateCurrentForNextLine appends a scene carrying over the background and the
// character placements of the current one, with an empty transcript.
func (q *Sequence) DuplicateCurrentForNextLine() *Scene {
	cur := q.CurrentScene()
	if cur == nil {
		return q.CreateScene("")
	}
	next := NewScene(cur.Background)
	next.Characters = append(next.Characters, cur.Characters...)
	q.Scenes = append(q.Scenes, next)
	q.Current = len(q.Scenes) - 1
	return &q.Scenes[q.Current]
}

// Truncate keeps the first n scenes (at least one) and clamps the current pointer.
func (q *Sequence) Truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n >= len(q.Scenes) {
		return
	}
	q.Scenes = q.Scenes[:n:n]
	if q.Current >= n {
		q.Current = n - 1
	}
}

// Replace overwrites scene i with a copy of sc, appending when i is past the end.
// It returns the index the scene ended up at.
func (q *Sequence) Replace(i int, sc Scene) int {
	if i >= 0 && i < len(q.Scenes) {
		q.Scenes[i] = sc.Clone()
		return i
	}
	q.Scenes = append(q.Scenes, sc.Clone())
	return len(q.Scenes) - 1
}

// Validate asserts the sequence and scene invariants.
func (q *Sequence) Validate() error {
	if len(q.Scenes) == 0 {
		return fmt.Errorf("%w: empty sequence", ErrInvariant)
	}
	if q.Current < 0 || q.Current >= len(q.Scenes) {
		return fmt.Errorf("%w: current index %d outside [0,%d)", ErrInvariant, q.Current, len(q.Scenes))
	}
	for i := range q.Scenes {
		if err := q.Scenes[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
