/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package vector

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	xvector "golang.org/x/image/vector"
)

// FillRoundedRect paints r with corner radius onto dst, blending over existing pixels.
func FillRoundedRect(dst xdraw.Image, r Rect, radius float32, c color.Color) {
	paint(dst, r, c, func(z *xvector.Rasterizer, off Pt) {
		roundedRect(z, r, radius, off, false)
	})
}

// StrokeRoundedRect paints a border of the given width along the inside of r.
func StrokeRoundedRect(dst xdraw.Image, r Rect, radius, width float32, c color.Color) {
	if width <= 0 {
		return
	}
	inner := r.Inset(width, width)
	paint(dst, r, c, func(z *xvector.Rasterizer, off Pt) {
		roundedRect(z, r, radius, off, false)
		if !inner.Empty() {
			// opposite winding cuts the hole
			roundedRect(z, inner, max(0, radius-width), off, true)
		}
	})
}

// paint rasterizes a path into a coverage mask the size of r and composites c through it.
func paint(dst xdraw.Image, r Rect, c color.Color, path func(z *xvector.Rasterizer, off Pt)) {
	b := r.Image()
	if b.Empty() || !b.Overlaps(dst.Bounds()) {
		return
	}
	z := xvector.NewRasterizer(b.Dx(), b.Dy())
	path(z, Pt{X: float32(b.Min.X), Y: float32(b.Min.Y)})
	mask := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	xdraw.DrawMask(dst, b, image.NewUniform(c), image.Point{}, mask, image.Point{}, xdraw.Over)
}

// roundedRect appends a closed rounded rectangle. Corners are quadratic curves.
func roundedRect(z *xvector.Rasterizer, r Rect, radius float32, off Pt, reverse bool) {
	radius = max(0, min(radius, r.W/2, r.H/2))
	x0, y0 := r.X-off.X, r.Y-off.Y
	x1, y1 := x0+r.W, y0+r.H

	// corner points in clockwise order, each with its control point
	type seg struct{ lx, ly, cx, cy, ex, ey float32 }
	segs := []seg{
		{x1 - radius, y0, x1, y0, x1, y0 + radius},
		{x1, y1 - radius, x1, y1, x1 - radius, y1},
		{x0 + radius, y1, x0, y1, x0, y1 - radius},
		{x0, y0 + radius, x0, y0, x0 + radius, y0},
	}
	if !reverse {
		z.MoveTo(x0+radius, y0)
		for _, s := range segs {
			z.LineTo(s.lx, s.ly)
			z.QuadTo(s.cx, s.cy, s.ex, s.ey)
		}
		z.ClosePath()
		return
	}
	// walk the same outline backwards
	z.MoveTo(x0+radius, y0)
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		z.LineTo(s.ex, s.ey)
		z.QuadTo(s.cx, s.cy, s.lx, s.ly)
	}
	z.ClosePath()
}
