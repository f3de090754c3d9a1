/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"scenewriter/internal/assets"
	"scenewriter/internal/domain"
	"scenewriter/internal/editor"
	"scenewriter/internal/script"
)

// done reports the outcome of an editor command. Rejections are not failures.
func done(err error, msg string) error {
	if editor.IsRejected(err) {
		fmt.Println("Nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runInit(_ context.Context, a *app, _ []string) error {
	fmt.Println("Workspace ready at", a.ws.Root)
	return nil
}

func runShow(_ context.Context, a *app, _ []string) error {
	st := a.ed.State()
	printScene(st.Sequence.Current, st.Sequence.CurrentScene())
	fmt.Printf("Scenes: %d  History: %d\n", st.Sequence.Len(), st.HistoryDepth)
	if i, ok := st.Session.Loaded(); ok {
		mod := ""
		if st.Session.Modified {
			mod = " (modified)"
		}
		fmt.Printf("Editing snapshot %d%s\n", i, mod)
	}
	if st.Buffer.Text != "" {
		fmt.Printf("Typing: %s: %s\n", st.Buffer.Speaker, st.Buffer.Text)
	}
	return nil
}

func printScene(index int, sc *domain.Scene) {
	if sc == nil {
		fmt.Println("No scene.")
		return
	}
	bg := sc.Background
	if bg == "" {
		bg = "(none)"
	}
	fmt.Printf("Scene %d  background %s\n", index+1, bg)
	for _, c := range sc.Characters {
		fmt.Printf("  character %s (%s)\n", c.Name, c.ImageRef)
	}
	for i, d := range sc.Dialogue {
		mark := " "
		if i == sc.Cursor {
			mark = ">"
		}
		fmt.Printf(" %s %s: %s\n", mark, d.Speaker, d.Text)
	}
	if sc.Annotation != "" {
		fmt.Printf("  note: %s\n", sc.Annotation)
	}
}

func runImport(_ context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("import requires <script>")
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	s, perrs := script.Parse(string(b))
	for _, e := range perrs {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], e)
	}
	res, err := script.Replay(a.ed, s)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d scenes, %d lines", res.Scenes, res.Lines)
	if res.Rejected > 0 {
		fmt.Printf(" (%d directives ignored)", res.Rejected)
	}
	fmt.Println()
	return nil
}

func speakerText(cmd string, args []string) (string, string, error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("%s requires <speaker> <text>", cmd)
	}
	return args[0], strings.Join(args[1:], " "), nil
}

func runSay(_ context.Context, a *app, args []string) error {
	sp, text, err := speakerText("say", args)
	if err != nil {
		return err
	}
	return done(a.ed.AddDialogueLine(sp, text), "Line added.")
}

func runNextLine(_ context.Context, a *app, args []string) error {
	sp, text, err := speakerText("next-line", args)
	if err != nil {
		return err
	}
	return done(a.ed.AdvanceLine(sp, text), "Line committed.")
}

func runNextScene(_ context.Context, a *app, args []string) error {
	var sp, text string
	if len(args) > 0 {
		var err error
		if sp, text, err = speakerText("next-scene", args); err != nil {
			return err
		}
	}
	err := a.ed.AdvanceScene(sp, text)
	st := a.ed.State()
	return done(err, fmt.Sprintf("Scene %d started.", st.Sequence.Len()))
}

func runPrev(_ context.Context, a *app, _ []string) error {
	return done(a.ed.PreviousLine(), "Cursor moved back.")
}

func runNext(_ context.Context, a *app, _ []string) error {
	return done(a.ed.NextLine(), "Cursor moved forward.")
}

func runBackground(_ context.Context, a *app, args []string) error {
	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	return done(a.ed.SetBackground(ref), "Background set.")
}

func runCharacter(_ context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("char requires <ref>")
	}
	ref := args[0]
	name := strings.Join(args[1:], " ")
	if name == "" {
		if as, ok := a.catalog.Lookup(ref); ok {
			name = as.Name
		} else {
			name = assets.NameFromFile(ref)
		}
	}
	return done(a.ed.ToggleCharacter(name, ref), "Character toggled.")
}

func runNote(_ context.Context, a *app, args []string) error {
	return done(a.ed.SetAnnotation(strings.Join(args, " ")), "Annotation set.")
}

func runReset(_ context.Context, a *app, _ []string) error {
	return done(a.ed.ResetScene(), "Scene cleared.")
}

func runUndo(_ context.Context, a *app, _ []string) error {
	return done(a.ed.Undo(), "Restored previous state.")
}

func runHistory(_ context.Context, a *app, _ []string) error {
	list := a.ed.ListSnapshots()
	if len(list) == 0 {
		fmt.Println("History is empty.")
		return nil
	}
	for _, s := range list {
		mark := " "
		if s.Loaded {
			mark = "*"
		}
		first := ""
		if len(s.Preview.Dialogue) > 0 {
			d := s.Preview.Dialogue[0]
			first = fmt.Sprintf("%s: %s", d.Speaker, d.Text)
		}
		fmt.Printf("%s [%d] %s  %d lines  %s\n", mark, s.Index, s.TakenAt.Local().Format("2006-01-02 15:04:05"), len(s.Preview.Dialogue), first)
	}
	return nil
}

func runLoad(_ context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("load requires <index>")
	}
	i, err := atoi(args[0])
	if err != nil {
		return err
	}
	return done(a.ed.LoadSnapshotForEdit(i), fmt.Sprintf("Snapshot %d loaded for editing.", i))
}

func runSaveSnapshot(_ context.Context, a *app, _ []string) error {
	if err := a.ed.SaveLoadedSnapshot(); errors.Is(err, editor.ErrNoSnapshotLoaded) {
		return errors.New("no snapshot is loaded; use load <dir> <index> first")
	} else if err != nil {
		return err
	}
	fmt.Println("Snapshot saved.")
	return nil
}

func runDeleteSnapshot(_ context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("delete-snapshot requires <index>")
	}
	i, err := atoi(args[0])
	if err != nil {
		return err
	}
	return done(a.ed.DeleteSnapshot(i), fmt.Sprintf("Snapshot %d deleted.", i))
}

func runClearHistory(_ context.Context, a *app, _ []string) error {
	return done(a.ed.ClearHistory(), "History cleared.")
}
