/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads line-oriented dialogue scripts and replays them as editor commands.
package script

import (
	"bufio"
	"regexp"
	"strings"

	"scenewriter/internal/assets"
)

var (
	reScene     = regexp.MustCompile(`^#+\s*(.*)$`)
	reName      = regexp.MustCompile(`^([\p{L}\p{N}_\-\. ?]{1,64})\s*:\s*(.*)$`)
	reDirective = regexp.MustCompile(`^@(\w+)\s*(.*)$`)
)

// Parse parses script text.
// Supported syntax:
//   - "# title" starts a new scene.
//   - "NAME: text" is a dialogue line; continuation lines indented by 2+ spaces
//     are appended to the previous dialogue or annotation with a newline.
//   - "> text", "CAPTION: text" and "NARRATION: text" add to the scene annotation.
//   - "@bg ref" sets the background, "@char Name=ref" or "@char ref" places a character.
//   - Lines starting with ';' are notes.
//
// Lines that match nothing are kept as LineUnknown and reported as errors.
func Parse(input string) (Script, []Error) {
	s := Script{Scenes: []Scene{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	current := Scene{}
	var last *Line

	flush := func() {
		if strings.TrimSpace(current.Title) != "" || len(current.Lines) > 0 {
			s.Scenes = append(s.Scenes, current)
		}
	}
	add := func(l Line) {
		current.Lines = append(current.Lines, l)
		last = &current.Lines[len(current.Lines)-1]
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		if strings.HasPrefix(line, "  ") && last != nil && (last.Type == LineDialogue || last.Type == LineAnnotation) {
			if cont := strings.TrimSpace(line); cont != "" {
				last.Text += "\n" + cont
			}
			continue
		}

		trim := strings.TrimSpace(line)
		if trim == "" {
			last = nil
			continue
		}

		switch {
		case reScene.MatchString(trim):
			flush()
			current = Scene{Title: strings.TrimSpace(reScene.FindStringSubmatch(trim)[1])}
			last = nil
		case strings.HasPrefix(trim, ";"):
			add(Line{Type: LineNote, Text: strings.TrimSpace(strings.TrimPrefix(trim, ";")), LineNo: lineNo})
			last = nil
		case strings.HasPrefix(trim, ">"):
			add(Line{Type: LineAnnotation, Text: strings.TrimSpace(strings.TrimPrefix(trim, ">")), LineNo: lineNo})
		case reDirective.MatchString(trim):
			m := reDirective.FindStringSubmatch(trim)
			l, err := directive(strings.ToLower(m[1]), strings.TrimSpace(m[2]), lineNo)
			if err != nil {
				errs = append(errs, *err)
			}
			add(l)
			last = nil
		case reName.MatchString(trim):
			m := reName.FindStringSubmatch(trim)
			name := strings.TrimSpace(m[1])
			text := strings.TrimSpace(m[2])
			switch strings.ToUpper(name) {
			case "CAPTION", "NARRATION":
				add(Line{Type: LineAnnotation, Text: text, LineNo: lineNo})
			default:
				add(Line{Type: LineDialogue, Speaker: name, Text: text, LineNo: lineNo})
			}
		default:
			if len(s.Scenes) == 0 && strings.TrimSpace(current.Title) == "" && len(current.Lines) == 0 {
				current.Title = "Untitled"
			}
			add(Line{Type: LineUnknown, Text: trim, LineNo: lineNo})
			errs = append(errs, Error{Line: lineNo, Message: "unrecognized line"})
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Message: err.Error()})
	}
	return s, errs
}

func directive(name, arg string, lineNo int) (Line, *Error) {
	switch name {
	case "bg", "background":
		return Line{Type: LineBackground, Ref: arg, LineNo: lineNo}, nil
	case "char", "character":
		if arg == "" {
			return Line{Type: LineUnknown, LineNo: lineNo}, &Error{Line: lineNo, Message: "@char needs an image ref"}
		}
		speaker, ref, ok := strings.Cut(arg, "=")
		if !ok {
			ref, speaker = arg, assets.NameFromFile(arg)
		}
		return Line{Type: LineCharacter, Speaker: strings.TrimSpace(speaker), Ref: strings.TrimSpace(ref), LineNo: lineNo}, nil
	}
	return Line{Type: LineUnknown, Text: "@" + name + " " + arg, LineNo: lineNo}, &Error{Line: lineNo, Message: "unknown directive @" + name}
}
