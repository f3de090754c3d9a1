/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package api exposes the editor commands over HTTP and pushes state changes to
// browser front ends over a websocket.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"scenewriter/internal/assets"
	"scenewriter/internal/editor"
	"scenewriter/internal/export"
	applog "scenewriter/internal/log"
	"scenewriter/internal/storage"
)

// Deps wires the server to one workspace.
type Deps struct {
	Editor   *editor.Editor
	Exporter *export.Orchestrator
	Catalog  *assets.Catalog
	// Persist is called after every applied command. Failures are logged only.
	Persist func(ctx context.Context) error
	// Search answers /api/search. Nil disables the route.
	Search func(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error)
	// OnExport is told about finished exports (export log, telemetry).
	OnExport func(ctx context.Context, format string, rep export.Report)
	// AllowedOrigins restricts websocket upgrades. Empty allows same host only.
	AllowedOrigins []string
}

// Server is the HTTP surface of one editor.
type Server struct {
	deps   Deps
	engine *gin.Engine
	hub    *Hub
	log    *slog.Logger

	// Exports take the live surface over, so they exclude commands.
	surface sync.RWMutex

	unsubscribe func()
}

// NewServer builds the router and starts the websocket hub. Close releases both.
func NewServer(d Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		deps: d,
		log:  applog.WithComponent("api"),
	}
	s.hub = NewHub(d.AllowedOrigins)
	go s.hub.Run()
	s.unsubscribe = d.Editor.Subscribe(func(st editor.State) {
		s.hub.Broadcast(Message{Type: MessageState, Payload: st})
	})
	s.engine = s.router()
	return s
}

// Handler returns the gin engine as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Close detaches from the editor and disconnects every websocket client.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub.Stop()
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("shutdown", slog.Any("err", err))
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ws", s.hub.Handler(s.deps.Editor.State))

	a := r.Group("/api")
	a.GET("/state", s.getState)
	a.PUT("/buffer", s.lineCommand("set_buffer", s.deps.Editor.SetBuffer))
	a.POST("/dialogue", s.lineCommand("add_dialogue_line", s.deps.Editor.AddDialogueLine))
	a.POST("/advance/line", s.lineCommand("advance_line", s.deps.Editor.AdvanceLine))
	a.POST("/advance/scene", s.lineCommand("advance_scene", s.deps.Editor.AdvanceScene))
	a.POST("/undo", s.command("undo", s.deps.Editor.Undo))
	a.POST("/history/clear", s.command("clear_history", s.deps.Editor.ClearHistory))
	a.POST("/scene/reset", s.command("reset_scene", s.deps.Editor.ResetScene))
	a.PUT("/scene/background", s.putBackground)
	a.POST("/scene/characters", s.postCharacter)
	a.PUT("/scene/annotation", s.putAnnotation)
	a.POST("/cursor/prev", s.command("previous_line", s.deps.Editor.PreviousLine))
	a.POST("/cursor/next", s.command("next_line", s.deps.Editor.NextLine))

	a.GET("/snapshots", s.getSnapshots)
	a.POST("/snapshots/:index/load", s.postLoadSnapshot)
	a.DELETE("/snapshots/:index", s.deleteSnapshot)
	a.POST("/snapshots/save", s.postSaveSnapshot)

	a.GET("/export/current", s.exportCurrent)
	a.GET("/export/all", s.exportAll)
	a.GET("/export/animated", s.exportAnimated)

	a.GET("/assets", s.getAssets)
	if s.deps.Search != nil {
		a.GET("/search", s.getSearch)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		lvl := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			lvl = slog.LevelError
		}
		s.log.Log(c.Request.Context(), lvl, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
		)
	}
}
