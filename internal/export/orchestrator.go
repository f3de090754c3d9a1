/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"scenewriter/internal/domain"
	"scenewriter/internal/history"
	applog "scenewriter/internal/log"
)

// HistorySource lists stored snapshots.
type HistorySource interface {
	All() []history.Snapshot
}

// Orchestrator drives single, batch and animated exports.
type Orchestrator struct {
	Stage      Stage
	History    HistorySource
	Renderer   Renderer
	Encoder    Encoder
	Options    Options
	Typewriter Typewriter

	log *slog.Logger
}

func NewOrchestrator(stage Stage, hist HistorySource, r Renderer, enc Encoder, opt Options) *Orchestrator {
	return &Orchestrator{
		Stage:      stage,
		History:    hist,
		Renderer:   r,
		Encoder:    enc,
		Options:    opt,
		Typewriter: DefaultTypewriter,
		log:        applog.WithComponent("export"),
	}
}

// ExportOne renders sc. A non-empty annotation is forced visible for this render only.
func (o *Orchestrator) ExportOne(ctx context.Context, sc domain.Scene) (image.Image, error) {
	return o.render(ctx, NewView(sc), o.Options)
}

// ExportCurrent renders the scene on the live surface, typed text included.
// The returned item carries the 1-based position of that scene.
func (o *Orchestrator) ExportCurrent(ctx context.Context) (Item, image.Image, error) {
	seq, _ := o.Stage.Capture()
	item := Item{Ordinal: seq.Current + 1, Source: SourceLive, Scene: o.Stage.Current()}
	img, err := o.ExportOne(ctx, item.Scene)
	return item, img, err
}

// ExportAll renders every exportable item of src into sink. Items without dialogue
// and annotation are skipped. Failures are recorded and the batch goes on. The live
// surface is put back after each item.
func (o *Orchestrator) ExportAll(ctx context.Context, src Source, sink Sink) (Report, error) {
	l := applog.WithOperation(o.log, "export_all").With(slog.String("source", string(src)))
	rep := Report{Source: src}
	items := o.items(src)
	if len(items) == 0 {
		return rep, ErrNothingToExport
	}
	for _, it := range items {
		if !it.Scene.Exportable() {
			rep.Skipped++
			continue
		}
		seq, buf := o.Stage.Capture()
		o.Stage.Show(it.Scene)
		v := NewView(o.Stage.Current())
		o.Stage.Reinstate(seq, buf)

		img, err := o.render(ctx, v, o.Options)
		if err == nil {
			err = sink.Put(it, img)
		}
		if err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, ItemError{Ordinal: it.Ordinal, Err: err})
			l.Error("export item failed", slog.Int("item", it.Ordinal), slog.Any("err", err))
			continue
		}
		rep.Exported++
	}
	l.Info("export finished", slog.Int("exported", rep.Exported), slog.Int("skipped", rep.Skipped), slog.Int("failed", rep.Failed))
	return rep, nil
}

// ExportAnimated renders a typewriter reveal of the active line of sc (the first
// line when the cursor is past the end) and encodes the frames.
func (o *Orchestrator) ExportAnimated(ctx context.Context, sc domain.Scene) ([]byte, error) {
	if len(sc.Dialogue) == 0 {
		return nil, ErrNoDialogueContent
	}
	line, ok := sc.CurrentLine()
	if !ok {
		line = sc.Dialogue[0]
	}
	base := NewView(sc)
	opt := o.Options
	opt.Scale = 1
	texts := o.Typewriter.Texts(line.Text)
	frames := make([]Frame, 0, len(texts))
	for _, txt := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := o.render(ctx, base.WithText(line.Speaker, txt), opt)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{Image: img, Delay: o.Typewriter.step()})
	}
	data, err := o.Encoder.Encode(ctx, frames)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	o.log.Info("animation encoded", slog.Int("frames", len(frames)), slog.Int("bytes", len(data)))
	return data, nil
}

// ExportCurrentAnimated animates the scene on the live surface.
func (o *Orchestrator) ExportCurrentAnimated(ctx context.Context) (Item, []byte, error) {
	seq, _ := o.Stage.Capture()
	item := Item{Ordinal: seq.Current + 1, Source: SourceLive, Scene: o.Stage.Current()}
	data, err := o.ExportAnimated(ctx, item.Scene)
	return item, data, err
}

func (o *Orchestrator) render(ctx context.Context, v View, opt Options) (image.Image, error) {
	img, err := o.Renderer.Render(ctx, v, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: scene %s: %w", ErrRenderFailed, v.Scene.ID, err)
	}
	return img, nil
}

func (o *Orchestrator) items(src Source) []Item {
	var out []Item
	switch src {
	case SourceHistory:
		if o.History == nil {
			return nil
		}
		for i, s := range o.History.All() {
			if sc, ok := s.Scene(); ok {
				out = append(out, Item{Ordinal: i + 1, Source: src, Scene: sc})
			}
		}
	default:
		seq, _ := o.Stage.Capture()
		for i, sc := range seq.Scenes {
			if i == seq.Current {
				// typed text counts, as in ExportCurrent
				sc = o.Stage.Current()
			}
			out = append(out, Item{Ordinal: i + 1, Source: SourceLive, Scene: sc})
		}
	}
	return out
}
