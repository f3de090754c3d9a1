/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns scenes into images and animations. The Orchestrator walks
// the live sequence or the snapshot stack and hands each item to a Renderer; an
// Encoder assembles typewriter frames into an animation and Sinks store the results.
package export

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"

	"scenewriter/internal/domain"
)

var (
	// ErrRenderFailed wraps any renderer failure.
	ErrRenderFailed = errors.New("export: render failed")
	// ErrEncodeFailed wraps any encoder failure.
	ErrEncodeFailed = errors.New("export: encode failed")
	// ErrNoDialogueContent is returned by animated export for a scene without dialogue.
	ErrNoDialogueContent = errors.New("export: scene has no dialogue")
	// ErrNothingToExport is returned by a batch whose source holds no items at all.
	ErrNothingToExport = errors.New("export: nothing to export")
)

// DefaultSpeaker is shown when a line has no speaker.
const DefaultSpeaker = "???"

// View is everything a renderer needs for one frame. It is a copy; renderers may
// keep it past the call.
type View struct {
	Scene      domain.Scene
	Placements []domain.Placement
	// Line is the active dialogue line, nil when the scene has none.
	Line *domain.DialogueLine
	// ShowAnnotation forces the annotation panel on.
	ShowAnnotation bool
}

// NewView builds the view of sc: the line under the cursor, or the last line when
// the cursor is at the append position. A non-empty annotation is always shown.
func NewView(sc domain.Scene) View {
	sc = sc.Clone()
	v := View{Scene: sc, Placements: sc.Placements(), ShowAnnotation: strings.TrimSpace(sc.Annotation) != ""}
	if line, ok := sc.CurrentLine(); ok {
		v.Line = &line
	} else if n := len(sc.Dialogue); n > 0 {
		line := sc.Dialogue[n-1]
		v.Line = &line
	}
	return v
}

// WithText returns a copy whose active line shows text instead.
func (v View) WithText(speaker, text string) View {
	v.Line = &domain.DialogueLine{Speaker: speaker, Text: text}
	return v
}

// Options are passed through to the renderer.
type Options struct {
	Width  int
	Height int
	// Scale multiplies Width and Height.
	Scale float64
}

// Size returns the pixel size after scaling, with defaults for zero values.
func (o Options) Size() (int, int) {
	w, h, s := o.Width, o.Height, o.Scale
	if w <= 0 {
		w = 960
	}
	if h <= 0 {
		h = 540
	}
	if s <= 0 {
		s = 1
	}
	return int(float64(w) * s), int(float64(h) * s)
}

// Renderer rasterizes a view.
type Renderer interface {
	Render(ctx context.Context, v View, opt Options) (image.Image, error)
}

// Frame is one animation frame.
type Frame struct {
	Image image.Image
	Delay time.Duration
}

// Encoder assembles frames into an animation blob.
type Encoder interface {
	Encode(ctx context.Context, frames []Frame) ([]byte, error)
}

// Stage is the live surface an export takes over for one item at a time.
type Stage interface {
	Capture() (domain.Sequence, domain.EditBuffer)
	Show(sc domain.Scene)
	Current() domain.Scene
	Reinstate(seq domain.Sequence, buf domain.EditBuffer)
}

// Source selects what a batch export walks.
type Source string

const (
	SourceLive    Source = "live"
	SourceHistory Source = "history"
)

// ParseSource maps user input to a Source, defaulting to live.
func ParseSource(s string) Source {
	if Source(strings.ToLower(strings.TrimSpace(s))) == SourceHistory {
		return SourceHistory
	}
	return SourceLive
}

// Item is one exported scene. Ordinal is 1-based within its source.
type Item struct {
	Ordinal int
	Source  Source
	Scene   domain.Scene
}

// Sink receives rendered items of a batch.
type Sink interface {
	Put(item Item, img image.Image) error
	Close() error
}

// ItemError records a failed item of a batch.
type ItemError struct {
	Ordinal int
	Err     error
}

// Report summarizes a batch.
type Report struct {
	Source   Source      `json:"source"`
	Exported int         `json:"exported"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Errors   []ItemError `json:"-"`
}
