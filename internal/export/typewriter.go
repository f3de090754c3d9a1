/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import "time"

// Typewriter controls the incremental text reveal of animated exports.
type Typewriter struct {
	Total time.Duration
	Step  time.Duration
}

// DefaultTypewriter reveals a line over three seconds in 100ms frames.
var DefaultTypewriter = Typewriter{Total: 3 * time.Second, Step: 100 * time.Millisecond}

func (t Typewriter) step() time.Duration {
	if t.Step <= 0 {
		return DefaultTypewriter.Step
	}
	return t.Step
}

// FrameCount is Total/Step, at least 1. Texts returns one more frame than this.
func (t Typewriter) FrameCount() int {
	total := t.Total
	if total <= 0 {
		total = DefaultTypewriter.Total
	}
	n := int(total / t.step())
	if n < 1 {
		n = 1
	}
	return n
}

// Texts returns the prefixes shown by frames 0..N: frame i shows the first
// floor(i/N * len) runes of text.
func (t Typewriter) Texts(text string) []string {
	runes := []rune(text)
	n := t.FrameCount()
	out := make([]string, n+1)
	for i := 0; i <= n; i++ {
		out[i] = string(runes[:i*len(runes)/n])
	}
	return out
}
