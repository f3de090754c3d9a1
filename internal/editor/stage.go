/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"scenewriter/internal/domain"
	"scenewriter/internal/history"
)

// The methods below let an exporter take over the live surface for one item at a
// time. They bypass history, the session flag and subscribers.

// Capture returns a copy of the live sequence and edit buffer.
func (e *Editor) Capture() (domain.Sequence, domain.EditBuffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq.Clone(), e.buf
}

// Show puts sc on the live surface as the current scene.
func (e *Editor) Show(sc domain.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq.Ensure(e.opts.DefaultBackground)
	e.seq.Scenes[e.seq.Current] = sc.Clone()
	e.buf = domain.EditBuffer{}
}

// Current returns the scene on the live surface with the edit buffer folded in.
func (e *Editor) Current() domain.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	sc, _ := history.Capture(e.seq, e.buf).Scene()
	return sc
}

// Reinstate puts back what Capture returned.
func (e *Editor) Reinstate(seq domain.Sequence, buf domain.EditBuffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq = seq.Clone()
	e.seq.Ensure(e.opts.DefaultBackground)
	e.buf = buf
}
