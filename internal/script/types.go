/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "fmt"

// Script is a parsed dialogue script: an ordered list of scenes.
type Script struct {
	Scenes []Scene
}

// Scene groups the directives and lines under one heading.
type Scene struct {
	Title string
	Lines []Line
}

// LineType indicates the kind of a script line.
// Dialogue:   NAME: text
// Annotation: > text, CAPTION: text or NARRATION: text
// Background: @bg ref
// Character:  @char Name=ref or @char ref
// Note:       lines starting with ";" are author notes and not replayed

type LineType int

const (
	LineUnknown LineType = iota
	LineDialogue
	LineAnnotation
	LineBackground
	LineCharacter
	LineNote
)

// Line captures a single logical line (possibly with continuations).
// For Character lines Speaker holds the character name and Ref the image.
type Line struct {
	Type    LineType
	Speaker string
	Text    string
	Ref     string
	LineNo  int // 1-based starting line number in the source
}

// Error represents a parse problem with position context.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }
