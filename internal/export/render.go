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
	"errors"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"scenewriter/internal/assets"
	"scenewriter/internal/domain"
	applog "scenewriter/internal/log"
	"scenewriter/internal/textlayout"
	"scenewriter/internal/vector"
)

// ImageLoader resolves asset refs to decoded images.
type ImageLoader interface {
	Load(ref string) (image.Image, error)
}

// Palette used by the raster renderer.
var (
	colBackdrop    = color.RGBA{0, 0, 0, 255}
	colPlaceholder = color.RGBA{90, 90, 100, 160}
	colDialogBox   = color.RGBA{10, 10, 20, 190}
	colNamePlate   = color.RGBA{120, 40, 60, 230}
	colAnnotation  = color.RGBA{20, 30, 70, 210}
	colBorder      = color.RGBA{230, 230, 240, 255}
	colText        = color.RGBA{250, 250, 250, 255}
)

// RasterRenderer draws a scene the way the editor preview lays it out: background
// scaled to cover, characters standing on the bottom edge at their anchors, the
// dialogue box across the lower part and the annotation panel at the top.
// Missing assets are drawn as placeholders; undecodable ones fail the render.
type RasterRenderer struct {
	Images ImageLoader
	Text   *textlayout.Wrapper

	log *slog.Logger
}

func NewRasterRenderer(images ImageLoader, provider textlayout.Provider) *RasterRenderer {
	return &RasterRenderer{
		Images: images,
		Text:   textlayout.NewWrapper(provider, textlayout.FontSpec{Family: "dialogue", SizePt: 16}),
		log:    applog.WithComponent("render"),
	}
}

func (r *RasterRenderer) Render(ctx context.Context, v View, opt Options) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := opt.Size()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(colBackdrop), image.Point{}, xdraw.Src)

	if err := r.drawBackground(canvas, v.Scene.Background); err != nil {
		return nil, err
	}
	var occupied []vector.Rect
	for _, p := range v.Placements {
		rect, err := r.drawCharacter(canvas, p)
		if err != nil {
			return nil, err
		}
		occupied = append(occupied, vector.FromImage(rect))
	}
	occupied = append(occupied, vector.FromImage(r.drawDialogue(canvas, v.Line)))
	if v.ShowAnnotation {
		r.drawAnnotation(canvas, v.Scene.Annotation, occupied)
	}
	return canvas, nil
}

func (r *RasterRenderer) load(ref string) (image.Image, error) {
	if r.Images == nil || ref == "" {
		return nil, nil
	}
	img, err := r.Images.Load(ref)
	if errors.Is(err, assets.ErrUnknownAsset) {
		r.log.Debug("asset missing, drawing placeholder", slog.String("ref", ref))
		return nil, nil
	}
	return img, err
}

func (r *RasterRenderer) drawBackground(dst *image.RGBA, ref string) error {
	img, err := r.load(ref)
	if err != nil || img == nil {
		return err
	}
	b := dst.Bounds()
	sb := img.Bounds()
	s := math.Max(float64(b.Dx())/float64(sb.Dx()), float64(b.Dy())/float64(sb.Dy()))
	sw, sh := int(math.Ceil(float64(sb.Dx())*s)), int(math.Ceil(float64(sb.Dy())*s))
	x0 := (b.Dx() - sw) / 2
	y0 := (b.Dy() - sh) / 2
	xdraw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+sw, y0+sh), img, sb, xdraw.Over, nil)
	return nil
}

// drawCharacter returns the rectangle the character occupies.
func (r *RasterRenderer) drawCharacter(dst *image.RGBA, p domain.Placement) (image.Rectangle, error) {
	b := dst.Bounds()
	cx := int(math.Round(p.X * float64(b.Dx())))
	th := int(float64(b.Dy()) * 0.85)
	img, err := r.load(p.Character.ImageRef)
	if err != nil {
		return image.Rectangle{}, err
	}
	if img == nil {
		pw := b.Dx() / 5
		rect := image.Rect(cx-pw/2, b.Dy()-th, cx+pw/2, b.Dy())
		panel(dst, vector.FromImage(rect), 6, colPlaceholder)
		r.drawLines(dst, []string{p.Character.Name}, rect.Min.X+6, rect.Min.Y+6)
		return rect, nil
	}
	sb := img.Bounds()
	tw := sb.Dx() * th / sb.Dy()
	rect := image.Rect(cx-tw/2, b.Dy()-th, cx-tw/2+tw, b.Dy())
	xdraw.CatmullRom.Scale(dst, rect, img, sb, xdraw.Over, nil)
	return rect, nil
}

// drawDialogue paints the dialogue box with its name plate and returns the area both cover.
func (r *RasterRenderer) drawDialogue(dst *image.RGBA, line *domain.DialogueLine) image.Rectangle {
	b := dst.Bounds()
	mx := b.Dx() / 25
	box := image.Rect(mx, b.Dy()*72/100, b.Dx()-mx, b.Dy()-mx/2)
	_, met := r.Text.Face()
	pad := met.LineHeight() / 2
	panel(dst, vector.FromImage(box), float32(pad), colDialogBox)

	speaker, text := DefaultSpeaker, ""
	if line != nil {
		if s := strings.TrimSpace(line.Speaker); s != "" {
			speaker = s
		}
		text = line.Text
	}
	nameW := textlayout.Measure(r.Text.Provider, r.Text.Font, speaker) + 2*pad
	plate := image.Rect(box.Min.X+pad, box.Min.Y-met.LineHeight()-pad, box.Min.X+pad+nameW, box.Min.Y+pad/2)
	vector.FillRoundedRect(dst, vector.FromImage(plate), float32(pad)/2, colNamePlate)
	r.drawLines(dst, []string{speaker}, plate.Min.X+pad, plate.Min.Y+pad/2)

	block := r.Text.Wrap(text, box.Dx()-2*pad)
	maxLines := (box.Dy() - 2*pad) / max(met.LineHeight(), 1)
	lines := block.Lines
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	r.drawLines(dst, lines, box.Min.X+pad, box.Min.Y+pad)
	return box.Union(plate)
}

// drawAnnotation places the note panel in the top-right corner, moving it
// away from characters and the dialogue box when they are in the way.
func (r *RasterRenderer) drawAnnotation(dst *image.RGBA, text string, occupied []vector.Rect) {
	b := dst.Bounds()
	_, met := r.Text.Face()
	pad := met.LineHeight() / 2
	width := b.Dx()/2 - 2*pad
	block := r.Text.Wrap(text, width)
	box := vector.Place(vector.FromImage(b), vector.Size{W: float32(width), H: float32(block.Height)}, occupied, vector.PlaceOptions{
		Direction: vector.RightToLeft,
		Padding:   float32(pad),
		Margin:    float32(pad),
		Step:      float32(max(pad, 4)),
	})
	panel(dst, box, float32(pad), colAnnotation)
	at := box.Image().Min
	r.drawLines(dst, block.Lines, at.X+pad, at.Y+pad)
}

// panel fills r and outlines it in the border colour.
func panel(dst *image.RGBA, r vector.Rect, radius float32, fill color.RGBA) {
	vector.FillRoundedRect(dst, r, radius, fill)
	vector.StrokeRoundedRect(dst, r, radius, 1.5, colBorder)
}

// drawLines writes lines top-down with (x, y) as the top-left of the first line.
func (r *RasterRenderer) drawLines(dst *image.RGBA, lines []string, x, y int) {
	face, met := r.Text.Face()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(colText), Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(x, y+met.Ascent+i*met.LineHeight())
		d.DrawString(l)
	}
}
