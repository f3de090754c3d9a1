package editor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenewriter/internal/domain"
)

func newEditor(t *testing.T, mode LineMode) *Editor {
	t.Helper()
	return New(Options{DefaultBackground: "backgrounds/1.png", LineMode: mode})
}

func TestAdvanceLineScenario(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.AdvanceLine("Alice", "Hi"))

	st := e.State()
	assert.Equal(t, 1, st.HistoryDepth)
	sc := st.Sequence.Scenes[st.Sequence.Current]
	assert.Equal(t, []domain.DialogueLine{{Speaker: "Alice", Text: "Hi"}}, sc.Dialogue)
	assert.Equal(t, 1, sc.Cursor)
	assert.Equal(t, domain.EditBuffer{Speaker: "Alice"}, st.Buffer)

	snap, ok := e.History().At(0)
	require.True(t, ok)
	pending, _ := snap.Scene()
	assert.Equal(t, []domain.DialogueLine{{Speaker: "Alice", Text: "Hi"}}, pending.Dialogue)
}

func TestAdvanceLineFrameMode(t *testing.T) {
	e := newEditor(t, LineModeFrame)
	require.NoError(t, e.ToggleCharacter("Luna", "characters/luna.webp"))
	require.NoError(t, e.AdvanceLine("Luna", "Hello"))

	st := e.State()
	require.Equal(t, 2, st.Sequence.Len())
	assert.Equal(t, 1, st.Sequence.Current)
	next := st.Sequence.Scenes[1]
	assert.Empty(t, next.Dialogue)
	assert.Len(t, next.Characters, 1)
	assert.Equal(t, "Hello", st.Sequence.Scenes[0].Dialogue[0].Text)
}

func TestAdvanceSceneStartsFreshScene(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.SetBackground("backgrounds/3.png"))
	require.NoError(t, e.AdvanceScene("Alice", "Bye"))

	st := e.State()
	assert.Equal(t, 1, st.HistoryDepth)
	require.Equal(t, 2, st.Sequence.Len())
	assert.Equal(t, "backgrounds/1.png", st.Sequence.Scenes[1].Background)
	assert.Equal(t, "Bye", st.Sequence.Scenes[0].Dialogue[0].Text)
	assert.Empty(t, st.Buffer.Text)
}

func TestHistoryDepthIsAdvancesMinusUndos(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		e := newEditor(t, LineMode([]string{"cursor", "frame"}[round%2]))
		n, m := 0, 0
		for step := 0; step < 40; step++ {
			switch rng.Intn(3) {
			case 0:
				require.NoError(t, e.AdvanceLine("A", "line"))
				n++
			case 1:
				require.NoError(t, e.AdvanceScene("B", ""))
				n++
			default:
				if m < n {
					require.NoError(t, e.Undo())
					m++
				}
			}
			require.Equal(t, n-m, e.State().HistoryDepth)
		}
	}
}

func TestUndoOnEmptyStackIsNoop(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.AddDialogueLine("A", "kept"))
	before := e.State()

	err := e.Undo()
	assert.True(t, IsRejected(err))
	after := e.State()
	assert.Equal(t, before.Sequence, after.Sequence)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestUndoRestoresPreviousState(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.AdvanceLine("Alice", "Hi"))
	require.NoError(t, e.AdvanceScene("Bob", "Yo"))
	require.NoError(t, e.Undo())

	st := e.State()
	assert.Equal(t, 1, st.Sequence.Len())
	assert.Equal(t, 1, st.HistoryDepth)
	sc := st.Sequence.Scenes[0]
	assert.Equal(t, []domain.DialogueLine{{Speaker: "Alice", Text: "Hi"}, {Speaker: "Bob", Text: "Yo"}}, sc.Dialogue)
	// typed text at the time of the advance comes back as the active line
	assert.Equal(t, domain.EditBuffer{Speaker: "Bob", Text: "Yo"}, st.Buffer)
}

func TestAddDialogueLineRejectsEmpty(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	assert.ErrorIs(t, e.AddDialogueLine("A", "   "), ErrRejected)
	assert.Empty(t, e.State().Sequence.Scenes[0].Dialogue)
}

func TestCursorSteppingLoadsBuffer(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.AdvanceLine("A", "one"))
	require.NoError(t, e.AdvanceLine("B", "two"))
	require.NoError(t, e.PreviousLine())
	assert.Equal(t, domain.EditBuffer{Speaker: "B", Text: "two"}, e.State().Buffer)
	require.NoError(t, e.PreviousLine())
	assert.ErrorIs(t, e.PreviousLine(), ErrRejected)

	// advancing on a stepped-back line edits it in place
	require.NoError(t, e.AdvanceLine("A", "uno"))
	st := e.State()
	sc := st.Sequence.Scenes[0]
	assert.Equal(t, "uno", sc.Dialogue[0].Text)
	assert.Len(t, sc.Dialogue, 2)
	assert.Equal(t, 1, sc.Cursor)
	assert.Equal(t, "two", st.Buffer.Text)

	require.NoError(t, e.NextLine())
	assert.ErrorIs(t, e.NextLine(), ErrRejected)
}

func TestToggleCharacterTwice(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	before := e.State().Sequence.Scenes[0].Characters
	require.NoError(t, e.ToggleCharacter("Selena", "characters/selena.webp"))
	require.NoError(t, e.ToggleCharacter("Selena", "characters/selena.webp"))
	assert.Equal(t, before, e.State().Sequence.Scenes[0].Characters)
	assert.ErrorIs(t, e.ToggleCharacter("x", " "), ErrRejected)
}

func TestClearHistoryKeepsLiveContent(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.AdvanceLine("A", "one"))
	require.NoError(t, e.LoadSnapshotForEdit(0))
	require.NoError(t, e.ClearHistory())

	st := e.State()
	assert.Zero(t, st.HistoryDepth)
	assert.Nil(t, st.Session.LoadedIndex)
	assert.NotEmpty(t, st.Sequence.Scenes[0].Dialogue)

	require.NoError(t, e.SetAnnotation("note"))
	require.NoError(t, e.ResetScene())
	sc := e.State().Sequence.Scenes[0]
	assert.True(t, sc.IsBlank("backgrounds/1.png"))
}

func TestSubscribeReceivesAppliedCommands(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	var got []uint64
	cancel := e.Subscribe(func(s State) { got = append(got, s.Revision) })
	require.NoError(t, e.SetBuffer("A", "typing"))
	_ = e.Undo()
	cancel()
	require.NoError(t, e.SetBuffer("A", "more"))
	assert.Equal(t, []uint64{1}, got)
}

func TestStageCaptureShowReinstate(t *testing.T) {
	e := newEditor(t, LineModeCursor)
	require.NoError(t, e.AddDialogueLine("A", "live"))
	require.NoError(t, e.SetBuffer("A", "typed"))
	seq, buf := e.Capture()

	other := domain.NewScene("backgrounds/2.png")
	other.CommitLine("Z", "export only")
	e.Show(other)
	assert.Equal(t, "export only", e.Current().Dialogue[0].Text)

	e.Reinstate(seq, buf)
	st := e.State()
	assert.Equal(t, seq, st.Sequence)
	assert.Equal(t, buf, st.Buffer)
	// the buffer is folded over the line under the cursor
	assert.Equal(t, "typed", e.Current().Dialogue[0].Text)
}
