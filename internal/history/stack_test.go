/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"reflect"
	"testing"

	"scenewriter/internal/domain"
)

func seqWith(lines ...string) domain.Sequence {
	q := domain.NewSequence("")
	sc := q.CurrentScene()
	for _, l := range lines {
		sc.Cursor = len(sc.Dialogue)
		sc.CommitLine("A", l)
	}
	return q
}

func TestPushPopRoundTrip(t *testing.T) {
	st := NewStack(Config{})
	live := seqWith("one", "two")
	before := live.Clone()
	st.Push(Capture(live, domain.EditBuffer{}))
	s, ok := st.Pop()
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if !reflect.DeepEqual(s.Sequence, before) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", s.Sequence, before)
	}
	if _, ok := st.Pop(); ok {
		t.Fatalf("pop on empty stack should report false")
	}
}

func TestCaptureFoldsBufferAtCursor(t *testing.T) {
	live := seqWith("one", "two")
	live.Scenes[0].Cursor = 0
	s := Capture(live, domain.EditBuffer{Speaker: "B", Text: "edited"})
	if got := s.Sequence.Scenes[0].Dialogue[0]; got.Text != "edited" || got.Speaker != "B" {
		t.Fatalf("expected folded line, got %+v", got)
	}
	if live.Scenes[0].Dialogue[0].Text != "one" {
		t.Fatalf("live sequence must not change")
	}
}

func TestCaptureAppendsBufferAtEnd(t *testing.T) {
	live := seqWith("one")
	live.Scenes[0].Cursor = 1
	s := Capture(live, domain.EditBuffer{Speaker: "A", Text: "typed"})
	if n := len(s.Sequence.Scenes[0].Dialogue); n != 2 {
		t.Fatalf("expected 2 lines in snapshot, got %d", n)
	}
	if n := len(live.Scenes[0].Dialogue); n != 1 {
		t.Fatalf("live dialogue changed: %d", n)
	}
	if err := s.Sequence.Validate(); err != nil {
		t.Fatalf("snapshot invalid: %v", err)
	}
}

func TestCaptureIgnoresEmptyBuffer(t *testing.T) {
	live := seqWith("one")
	live.Scenes[0].Cursor = 0
	s := Capture(live, domain.EditBuffer{Speaker: "A", Text: "  "})
	if s.Sequence.Scenes[0].Dialogue[0].Text != "one" {
		t.Fatalf("empty buffer must not overwrite")
	}
}

func TestStackDepthAfterPushesAndPops(t *testing.T) {
	st := NewStack(Config{})
	for i := 0; i < 5; i++ {
		st.Push(Capture(seqWith(), domain.EditBuffer{}))
	}
	st.Pop()
	st.Pop()
	if st.Count() != 3 {
		t.Fatalf("expected depth 3, got %d", st.Count())
	}
	st.Clear()
	if d, b := st.Stats(); d != 0 || b != 0 {
		t.Fatalf("expected empty stack after clear, got %d/%d", d, b)
	}
}

func TestAtReturnsCopy(t *testing.T) {
	st := NewStack(Config{})
	st.Push(Capture(seqWith("one"), domain.EditBuffer{}))
	s, _ := st.At(0)
	s.Sequence.Scenes[0].Dialogue[0].Text = "mutated"
	again, _ := st.At(0)
	if again.Sequence.Scenes[0].Dialogue[0].Text != "one" {
		t.Fatalf("stored snapshot was mutated through At")
	}
	if _, ok := st.At(3); ok {
		t.Fatalf("out of range At should fail")
	}
}

func TestReplaceKeepsBackupAndRemoveRekeys(t *testing.T) {
	st := NewStack(Config{})
	for _, l := range []string{"a", "b", "c"} {
		st.Push(Capture(seqWith(l), domain.EditBuffer{}))
	}
	if !st.Replace(2, Capture(seqWith("c2"), domain.EditBuffer{})) {
		t.Fatalf("replace failed")
	}
	b, ok := st.Backup(2)
	if !ok || b.Sequence.Scenes[0].Dialogue[0].Text != "c" {
		t.Fatalf("expected backup of c, got ok=%v", ok)
	}
	if !st.Remove(0) {
		t.Fatalf("remove failed")
	}
	if _, ok := st.Backup(2); ok {
		t.Fatalf("backup should have moved from 2")
	}
	b, ok = st.Backup(1)
	if !ok || b.Sequence.Scenes[0].Dialogue[0].Text != "c" {
		t.Fatalf("expected backup re-keyed to 1")
	}
	if st.Remove(9) {
		t.Fatalf("out of range remove should fail")
	}
	tail, _ := st.Tail()
	if tail.Sequence.Scenes[0].Dialogue[0].Text != "c2" {
		t.Fatalf("unexpected tail %+v", tail)
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	st := NewStack(Config{MaxDepth: 2})
	for _, l := range []string{"a", "b", "c"} {
		st.Push(Capture(seqWith(l), domain.EditBuffer{}))
	}
	all := st.All()
	if len(all) != 2 || all[0].Sequence.Scenes[0].Dialogue[0].Text != "b" {
		t.Fatalf("expected [b c], got %d entries", len(all))
	}
}

func TestLoadDropsStrayBackups(t *testing.T) {
	st := NewStack(Config{})
	s := Capture(seqWith("a"), domain.EditBuffer{})
	st.Load([]Snapshot{s}, map[int]Snapshot{0: s, 4: s})
	if _, b := st.Stats(); b != 1 {
		t.Fatalf("expected 1 backup, got %d", b)
	}
}

func TestIsBlank(t *testing.T) {
	blank := Capture(domain.NewSequence("bg/1.png"), domain.EditBuffer{})
	if !IsBlank(blank, "bg/1.png") {
		t.Fatalf("fresh page should be blank")
	}
	if IsBlank(Capture(seqWith("x"), domain.EditBuffer{}), "") {
		t.Fatalf("page with dialogue is not blank")
	}
	withBuf := Capture(domain.NewSequence(""), domain.EditBuffer{Text: "pending"})
	if IsBlank(withBuf, "") {
		t.Fatalf("folded buffer makes the page non-blank")
	}
}
