/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"scenewriter/internal/assets"
	"scenewriter/internal/editor"
	"scenewriter/internal/export"
	"scenewriter/internal/storage"
)

// Error codes returned in the "code" field of error bodies.
const (
	ErrorBadRequest       = "BAD_REQUEST"
	ErrorNoSnapshotLoaded = "NO_SNAPSHOT_LOADED"
	ErrorNothingToExport  = "NOTHING_TO_EXPORT"
	ErrorNoDialogue       = "NO_DIALOGUE_CONTENT"
	ErrorExportFailed     = "EXPORT_FAILED"
	ErrorUnknownAsset     = "UNKNOWN_ASSET"
	ErrorInternal         = "INTERNAL_ERROR"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// commandResponse answers every editor command. Applied is false when the command
// was rejected; the state is then unchanged.
type commandResponse struct {
	Applied bool         `json:"applied"`
	State   editor.State `json:"state"`
}

type lineRequest struct {
	Speaker *string `json:"speaker"`
	Text    *string `json:"text"`
}

type backgroundRequest struct {
	Ref string `json:"ref"`
}

type characterRequest struct {
	Name string `json:"name"`
	Ref  string `json:"ref" binding:"required"`
}

type annotationRequest struct {
	Text string `json:"text"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, ErrorInternal
	switch {
	case errors.Is(err, editor.ErrNoSnapshotLoaded):
		status, code = http.StatusConflict, ErrorNoSnapshotLoaded
	case errors.Is(err, export.ErrNothingToExport):
		status, code = http.StatusUnprocessableEntity, ErrorNothingToExport
	case errors.Is(err, export.ErrNoDialogueContent):
		status, code = http.StatusUnprocessableEntity, ErrorNoDialogue
	case errors.Is(err, export.ErrRenderFailed), errors.Is(err, export.ErrEncodeFailed):
		code = ErrorExportFailed
	case errors.Is(err, assets.ErrUnknownAsset):
		status, code = http.StatusNotFound, ErrorUnknownAsset
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("err", err))
	}
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Code: ErrorBadRequest, Message: msg})
}

// respond finishes a command. Rejections are not errors for the client.
func (s *Server) respond(c *gin.Context, op string, err error) {
	if err != nil && !editor.IsRejected(err) {
		s.fail(c, err)
		return
	}
	applied := err == nil
	if applied && s.deps.Persist != nil {
		if perr := s.deps.Persist(c.Request.Context()); perr != nil {
			s.log.Error("persist failed", slog.String("op", op), slog.Any("err", perr))
		}
	}
	c.JSON(http.StatusOK, commandResponse{Applied: applied, State: s.deps.Editor.State()})
}

// command wraps an argument-less editor command.
func (s *Server) command(op string, fn func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.surface.RLock()
		err := fn()
		s.surface.RUnlock()
		s.respond(c, op, err)
	}
}

func (s *Server) getState(c *gin.Context) {
	s.surface.RLock()
	defer s.surface.RUnlock()
	c.JSON(http.StatusOK, s.deps.Editor.State())
}

// line reads speaker and text from the body. Missing fields fall back to the edit buffer.
func (s *Server) line(c *gin.Context) (string, string, bool) {
	buf := s.deps.Editor.State().Buffer
	speaker, text := buf.Speaker, buf.Text
	if c.Request.ContentLength != 0 {
		var req lineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return "", "", false
		}
		if req.Speaker != nil {
			speaker = *req.Speaker
		}
		if req.Text != nil {
			text = *req.Text
		}
	}
	return speaker, text, true
}

func (s *Server) lineCommand(op string, fn func(speaker, text string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		speaker, text, ok := s.line(c)
		if !ok {
			return
		}
		s.surface.RLock()
		err := fn(speaker, text)
		s.surface.RUnlock()
		s.respond(c, op, err)
	}
}

func (s *Server) putBackground(c *gin.Context) {
	var req backgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s.surface.RLock()
	err := s.deps.Editor.SetBackground(req.Ref)
	s.surface.RUnlock()
	s.respond(c, "set_background", err)
}

func (s *Server) postCharacter(c *gin.Context) {
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		if a, ok := s.lookup(req.Ref); ok {
			name = a.Name
		} else {
			name = assets.NameFromFile(req.Ref)
		}
	}
	s.surface.RLock()
	err := s.deps.Editor.ToggleCharacter(name, req.Ref)
	s.surface.RUnlock()
	s.respond(c, "toggle_character", err)
}

func (s *Server) putAnnotation(c *gin.Context) {
	var req annotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s.surface.RLock()
	err := s.deps.Editor.SetAnnotation(req.Text)
	s.surface.RUnlock()
	s.respond(c, "set_annotation", err)
}

func (s *Server) getSnapshots(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Editor.ListSnapshots())
}

func snapshotIndex(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		badRequest(c, fmt.Sprintf("invalid snapshot index %q", c.Param("index")))
		return 0, false
	}
	return i, true
}

func (s *Server) postLoadSnapshot(c *gin.Context) {
	i, ok := snapshotIndex(c)
	if !ok {
		return
	}
	s.surface.RLock()
	err := s.deps.Editor.LoadSnapshotForEdit(i)
	s.surface.RUnlock()
	s.respond(c, "load_snapshot", err)
}

func (s *Server) deleteSnapshot(c *gin.Context) {
	i, ok := snapshotIndex(c)
	if !ok {
		return
	}
	s.surface.RLock()
	err := s.deps.Editor.DeleteSnapshot(i)
	s.surface.RUnlock()
	s.respond(c, "delete_snapshot", err)
}

func (s *Server) postSaveSnapshot(c *gin.Context) {
	s.surface.RLock()
	err := s.deps.Editor.SaveLoadedSnapshot()
	s.surface.RUnlock()
	s.respond(c, "save_snapshot", err)
}

func (s *Server) exportCurrent(c *gin.Context) {
	s.surface.Lock()
	item, img, err := s.deps.Exporter.ExportCurrent(c.Request.Context())
	s.surface.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePNG(&buf, img); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", export.ErrEncodeFailed, err))
		return
	}
	s.exported(c, "png", export.Report{Source: export.SourceLive, Exported: 1})
	attachment(c, export.FileName(item.Ordinal, "png"), "image/png", buf.Bytes())
}

func (s *Server) exportAll(c *gin.Context) {
	src := export.ParseSource(c.Query("source"))
	var buf bytes.Buffer
	sink := export.NewCBZSink(&buf, "Scenes")
	s.surface.Lock()
	rep, err := s.deps.Exporter.ExportAll(c.Request.Context(), src, sink)
	s.surface.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := sink.Close(); err != nil {
		s.fail(c, err)
		return
	}
	if rep.Exported == 0 {
		if rep.Failed > 0 {
			s.fail(c, fmt.Errorf("%w: %d scenes failed", export.ErrRenderFailed, rep.Failed))
			return
		}
		s.fail(c, export.ErrNothingToExport)
		return
	}
	s.exported(c, "cbz", rep)
	c.Header("X-Export-Exported", strconv.Itoa(rep.Exported))
	c.Header("X-Export-Skipped", strconv.Itoa(rep.Skipped))
	c.Header("X-Export-Failed", strconv.Itoa(rep.Failed))
	attachment(c, "scenes_"+string(src)+".cbz", "application/vnd.comicbook+zip", buf.Bytes())
}

func (s *Server) exportAnimated(c *gin.Context) {
	s.surface.Lock()
	item, data, err := s.deps.Exporter.ExportCurrentAnimated(c.Request.Context())
	s.surface.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.exported(c, "gif", export.Report{Source: export.SourceLive, Exported: 1})
	attachment(c, export.FileName(item.Ordinal, "gif"), "image/gif", data)
}

func (s *Server) exported(c *gin.Context, format string, rep export.Report) {
	if s.deps.OnExport != nil {
		s.deps.OnExport(c.Request.Context(), format, rep)
	}
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) lookup(ref string) (assets.Asset, bool) {
	if s.deps.Catalog == nil {
		return assets.Asset{}, false
	}
	return s.deps.Catalog.Lookup(ref)
}

func (s *Server) getAssets(c *gin.Context) {
	if s.deps.Catalog == nil {
		c.JSON(http.StatusOK, []assets.Asset{})
		return
	}
	kind := assets.Kind(c.Query("kind"))
	switch kind {
	case "", assets.KindBackground, assets.KindCharacter:
	default:
		badRequest(c, fmt.Sprintf("unknown asset kind %q", kind))
		return
	}
	c.JSON(http.StatusOK, s.deps.Catalog.List(kind))
}

func (s *Server) getSearch(c *gin.Context) {
	q := storage.SearchQuery{
		Text:    c.Query("q"),
		Speaker: c.Query("speaker"),
	}
	if t := c.Query("type"); t != "" {
		q.Types = strings.Split(t, ",")
	}
	for key, dst := range map[string]*int{"from": &q.SceneFrom, "to": &q.SceneTo, "limit": &q.Limit, "offset": &q.Offset} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, fmt.Sprintf("invalid %s %q", key, v))
			return
		}
		*dst = n
	}
	res, err := s.deps.Search(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	if res == nil {
		res = []storage.SearchResult{}
	}
	c.JSON(http.StatusOK, res)
}
