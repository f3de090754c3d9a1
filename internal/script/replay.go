/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"

	"scenewriter/internal/editor"
	applog "scenewriter/internal/log"
)

// Commander is the subset of editor commands a script replays into.
type Commander interface {
	SetBackground(ref string) error
	ToggleCharacter(name, imageRef string) error
	SetAnnotation(text string) error
	AdvanceLine(speaker, text string) error
	AdvanceScene(speaker, text string) error
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Scenes   int
	Lines    int
	Rejected int
}

// Replay feeds the script into cmd. The first script scene continues the
// current scene; every further heading advances to a fresh scene first.
// Rejected commands are counted and skipped; other errors abort the replay.
func Replay(cmd Commander, s Script) (ReplayResult, error) {
	l := applog.WithComponent("script")
	var res ReplayResult

	run := func(err error) error {
		if err == nil {
			return nil
		}
		if editor.IsRejected(err) {
			res.Rejected++
			return nil
		}
		return err
	}

	for si, sc := range s.Scenes {
		if si > 0 {
			if err := run(cmd.AdvanceScene("", "")); err != nil {
				return res, err
			}
		}
		res.Scenes++
		var annotation []string
		for _, ln := range sc.Lines {
			var err error
			switch ln.Type {
			case LineBackground:
				err = cmd.SetBackground(ln.Ref)
			case LineCharacter:
				err = cmd.ToggleCharacter(ln.Speaker, ln.Ref)
			case LineAnnotation:
				annotation = append(annotation, ln.Text)
				err = cmd.SetAnnotation(strings.Join(annotation, "\n"))
			case LineDialogue:
				err = cmd.AdvanceLine(ln.Speaker, ln.Text)
				if err == nil {
					res.Lines++
				}
			default:
				continue
			}
			if err := run(err); err != nil {
				l.Error("replay aborted", "scene", sc.Title, "line", ln.LineNo, "err", err)
				return res, err
			}
		}
	}
	l.Debug("script replayed", "scenes", res.Scenes, "lines", res.Lines, "rejected", res.Rejected)
	return res, nil
}
