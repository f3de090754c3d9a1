package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenewriter/internal/assets"
	"scenewriter/internal/editor"
	"scenewriter/internal/export"
	"scenewriter/internal/storage"
)

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, _ export.View, opt export.Options) (image.Image, error) {
	w, h := opt.Size()
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, export.View, export.Options) (image.Image, error) {
	return nil, errors.New("broken asset")
}

type fixture struct {
	ed       *editor.Editor
	srv      *Server
	persists int
	exports  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ed: editor.New(editor.Options{DefaultBackground: "backgrounds/1.png"})}
	orch := export.NewOrchestrator(f.ed, f.ed.History(), stubRenderer{}, export.GIFEncoder{}, export.Options{Width: 32, Height: 18, Scale: 1})
	orch.Typewriter = export.Typewriter{Total: 300 * time.Millisecond, Step: 100 * time.Millisecond}
	f.srv = NewServer(Deps{
		Editor:   f.ed,
		Exporter: orch,
		Catalog:  assets.NewCatalog(t.TempDir()),
		Persist: func(context.Context) error {
			f.persists++
			return nil
		},
		Search: func(_ context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
			if q.Text == "" {
				return nil, nil
			}
			return []storage.SearchResult{{Type: storage.DocDialogue, Path: "scene:1/line:1", Snippet: "[" + q.Text + "]", SceneNo: 1}}, nil
		},
		OnExport: func(_ context.Context, format string, _ export.Report) {
			f.exports = append(f.exports, format)
		},
	})
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeCommand(t *testing.T, rec *httptest.ResponseRecorder) commandResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp commandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAdvanceLineOverHTTP(t *testing.T) {
	f := newFixture(t)
	resp := decodeCommand(t, f.do(t, http.MethodPost, "/api/advance/line", `{"speaker":"Alice","text":"Hi"}`))

	assert.True(t, resp.Applied)
	assert.Equal(t, 1, resp.State.HistoryDepth)
	sc := resp.State.Sequence.Scenes[resp.State.Sequence.Current]
	require.Len(t, sc.Dialogue, 1)
	assert.Equal(t, "Hi", sc.Dialogue[0].Text)
	assert.Equal(t, 1, f.persists)
}

func TestLineCommandFallsBackToBuffer(t *testing.T) {
	f := newFixture(t)
	decodeCommand(t, f.do(t, http.MethodPut, "/api/buffer", `{"speaker":"Bob","text":"typed"}`))
	resp := decodeCommand(t, f.do(t, http.MethodPost, "/api/dialogue", ""))

	sc := resp.State.Sequence.Scenes[resp.State.Sequence.Current]
	require.Len(t, sc.Dialogue, 1)
	assert.Equal(t, "Bob", sc.Dialogue[0].Speaker)
	assert.Equal(t, "typed", sc.Dialogue[0].Text)
}

func TestRejectedCommandIsNotAnError(t *testing.T) {
	f := newFixture(t)
	resp := decodeCommand(t, f.do(t, http.MethodPost, "/api/snapshots/5/load", ""))
	assert.False(t, resp.Applied)
	assert.Nil(t, resp.State.Session.LoadedIndex)
	assert.Zero(t, f.persists)
}

func TestSnapshotRoutes(t *testing.T) {
	f := newFixture(t)
	decodeCommand(t, f.do(t, http.MethodPost, "/api/advance/scene", `{"speaker":"Alice","text":"One"}`))
	decodeCommand(t, f.do(t, http.MethodPost, "/api/advance/scene", `{"speaker":"Alice","text":"Two"}`))

	rec := f.do(t, http.MethodGet, "/api/snapshots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []editor.SnapshotInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	resp := decodeCommand(t, f.do(t, http.MethodPost, "/api/snapshots/0/load", ""))
	require.NotNil(t, resp.State.Session.LoadedIndex)
	assert.Equal(t, 0, *resp.State.Session.LoadedIndex)

	resp = decodeCommand(t, f.do(t, http.MethodDelete, "/api/snapshots/0", ""))
	assert.True(t, resp.Applied)
	assert.Nil(t, resp.State.Session.LoadedIndex)
	assert.Equal(t, 1, resp.State.HistoryDepth)
}

func TestSnapshotRoutesValidateIndex(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/snapshots/abc/load", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorBadRequest)
}

func TestSaveWithoutLoadedSnapshotConflicts(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/snapshots/save", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorNoSnapshotLoaded)
}

func TestSceneEditingRoutes(t *testing.T) {
	f := newFixture(t)
	decodeCommand(t, f.do(t, http.MethodPut, "/api/scene/background", `{"ref":"backgrounds/3.png"}`))
	decodeCommand(t, f.do(t, http.MethodPost, "/api/scene/characters", `{"ref":"characters/Luna_-_Oblivion.webp"}`))
	resp := decodeCommand(t, f.do(t, http.MethodPut, "/api/scene/annotation", `{"text":"Night falls"}`))

	sc := resp.State.Sequence.Scenes[resp.State.Sequence.Current]
	assert.Equal(t, "backgrounds/3.png", sc.Background)
	require.Len(t, sc.Characters, 1)
	assert.Equal(t, "Luna", sc.Characters[0].Name)
	assert.Equal(t, "Night falls", sc.Annotation)

	rec := f.do(t, http.MethodPost, "/api/scene/characters", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCurrentPNG(t *testing.T) {
	f := newFixture(t)
	decodeCommand(t, f.do(t, http.MethodPost, "/api/advance/line", `{"speaker":"Alice","text":"Hi"}`))

	rec := f.do(t, http.MethodGet, "/api/export/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scene_1.png")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, []string{"png"}, f.exports)
}

func TestExportAllCBZ(t *testing.T) {
	f := newFixture(t)
	decodeCommand(t, f.do(t, http.MethodPost, "/api/advance/scene", `{"speaker":"Alice","text":"One"}`))

	rec := f.do(t, http.MethodGet, "/api/export/all?source=history", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	assert.Equal(t, "1", rec.Header().Get("X-Export-Exported"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scenes_history.cbz")
}

func TestExportAllReportsRenderFailures(t *testing.T) {
	f := newFixture(t)
	decodeCommand(t, f.do(t, http.MethodPost, "/api/advance/scene", `{"speaker":"Alice","text":"One"}`))
	f.srv.deps.Exporter.Renderer = failingRenderer{}

	rec := f.do(t, http.MethodGet, "/api/export/all?source=history", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorExportFailed)
	assert.NotContains(t, rec.Body.String(), ErrorNothingToExport)
	assert.Empty(t, f.exports)
}

func TestExportAllWithoutContent(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/export/all?source=history", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorNothingToExport)
	assert.Empty(t, f.exports)
}

func TestExportAnimated(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/export/animated", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorNoDialogue)

	decodeCommand(t, f.do(t, http.MethodPost, "/api/dialogue", `{"speaker":"Alice","text":"Hello"}`))
	rec = f.do(t, http.MethodGet, "/api/export/animated", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("GIF89a")))
}

func TestAssetsAndSearch(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/assets?kind=character", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []assets.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list)
	for _, a := range list {
		assert.Equal(t, assets.KindCharacter, a.Kind)
	}
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/assets?kind=music", "").Code)

	rec = f.do(t, http.MethodGet, "/api/search?q=hello&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[hello]")
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/search?limit=x", "").Code)
}

type pushed struct {
	Type    string `json:"type"`
	Payload struct {
		Revision     uint64 `json:"revision"`
		HistoryDepth int    `json:"historyDepth"`
	} `json:"payload"`
}

func TestWebsocketPushesState(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg pushed
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageState, msg.Type)
	assert.Zero(t, msg.Payload.Revision)

	resp, err := http.Post(ts.URL+"/api/advance/line", "application/json", strings.NewReader(`{"speaker":"A","text":"B"}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, uint64(1), msg.Payload.Revision)
	assert.Equal(t, 1, msg.Payload.HistoryDepth)
}

func TestHubSendsInitialStateBeforeLaterBroadcasts(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	c := &client{id: uuid.New(), hub: h, send: make(chan []byte, 4), initial: func() editor.State {
		return editor.State{Revision: 7}
	}}
	h.register <- c
	h.Broadcast(Message{Type: MessageState, Payload: editor.State{Revision: 8}})

	var first, second pushed
	require.NoError(t, json.Unmarshal(<-c.send, &first))
	require.NoError(t, json.Unmarshal(<-c.send, &second))
	assert.Equal(t, uint64(7), first.Payload.Revision)
	assert.Equal(t, uint64(8), second.Payload.Revision)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	ed := editor.New(editor.Options{})
	srv := NewServer(Deps{Editor: ed, AllowedOrigins: []string{"http://localhost:5173"}})
	defer srv.Close()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	conn.Close()
}
