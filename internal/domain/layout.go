/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Horizontal anchors as a fraction of the stage width (character center).
const (
	AnchorCenter = 0.5
	AnchorLeft   = 0.2
	AnchorRight  = 0.7
)

// Placement pairs a character with its horizontal anchor.
type Placement struct {
	Character Character `json:"character"`
	X         float64   `json:"x"`
}

// Layout returns the anchors for n characters in selection order.
// Three or more characters are spread evenly at (i+1)/(n+1).
func Layout(n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{AnchorCenter}
	case n == 2:
		return []float64{AnchorLeft, AnchorRight}
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i+1) / float64(n+1)
	}
	return xs
}

// Placements applies Layout to the scene's characters.
func (s *Scene) Placements() []Placement {
	xs := Layout(len(s.Characters))
	out := make([]Placement, len(s.Characters))
	for i, c := range s.Characters {
		out[i] = Placement{Character: c, X: xs[i]}
	}
	return out
}
