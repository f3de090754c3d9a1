/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package vector

import (
	"math"
	"sort"
)

// Direction sets the order in which a row is scanned.
type Direction string

const (
	LeftToRight Direction = "ltr"
	RightToLeft Direction = "rtl"
)

// PlaceOptions tunes Place. Zero values fall back to 8px padding, margin and step.
type PlaceOptions struct {
	Direction Direction
	// Padding is added around the content on every side.
	Padding float32
	// Margin is the clearance kept from the area edges.
	Margin float32
	// Step is the grid spacing of candidate positions.
	Step float32
	// Anchor, when set, orders candidates by distance of their center to it.
	Anchor *Pt
}

func (o PlaceOptions) withDefaults() PlaceOptions {
	if o.Padding <= 0 {
		o.Padding = 8
	}
	if o.Margin <= 0 {
		o.Margin = 8
	}
	if o.Step <= 0 {
		o.Step = 8
	}
	if o.Direction == "" {
		o.Direction = LeftToRight
	}
	return o
}

// Place finds a spot for a padded content box inside area that avoids obstacles.
// Candidates are scanned row by row from the top (or by anchor distance) and the
// first free one wins. When every candidate collides the least-overlapping one is
// returned. The result is always inside area inset by the margin and is
// deterministic for identical inputs.
func Place(area Rect, content Size, obstacles []Rect, opts PlaceOptions) Rect {
	opts = opts.withDefaults()
	inner := area.Inset(opts.Margin, opts.Margin)
	w := min(max(0, content.W+2*opts.Padding), max(0, inner.W))
	h := min(max(0, content.H+2*opts.Padding), max(0, inner.H))

	cands := candidates(inner, w, h, opts)
	if opts.Anchor != nil {
		a := *opts.Anchor
		sort.SliceStable(cands, func(i, j int) bool {
			di, dj := distance(cands[i].Center(), a), distance(cands[j].Center(), a)
			if di != dj {
				return di < dj
			}
			if cands[i].Y != cands[j].Y {
				return cands[i].Y < cands[j].Y
			}
			return cands[i].X < cands[j].X
		})
	}

	best, bestCost := cands[0], float32(math.MaxFloat32)
	for _, c := range cands {
		overlap := overlapArea(c, obstacles)
		if overlap <= 1e-4 {
			return c
		}
		if cost := placementCost(c, overlap, inner, opts); cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return clampInto(best, inner)
}

// candidates lays a grid of top-left positions over inner. The last row and
// column always sit flush with the far edges.
func candidates(inner Rect, w, h float32, opts PlaceOptions) []Rect {
	xs := steps(inner.X, max(inner.X, inner.X+inner.W-w), opts.Step)
	if opts.Direction == RightToLeft {
		for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
			xs[i], xs[j] = xs[j], xs[i]
		}
	}
	ys := steps(inner.Y, max(inner.Y, inner.Y+inner.H-h), opts.Step)
	out := make([]Rect, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			out = append(out, Rect{X: x, Y: y, W: w, H: h})
		}
	}
	return out
}

func steps(from, to, step float32) []float32 {
	var out []float32
	for v := from; v < to; v += step {
		out = append(out, v)
	}
	return append(out, to)
}

func placementCost(c Rect, overlap float32, inner Rect, opts PlaceOptions) float32 {
	cost := overlap * 10_000
	if opts.Anchor != nil {
		cost += distance(c.Center(), *opts.Anchor)
	}
	cost += c.Y * 0.01
	if opts.Direction == RightToLeft {
		cost += (inner.X + inner.W - (c.X + c.W)) * 0.001
	} else {
		cost += c.X * 0.001
	}
	return cost
}

func overlapArea(r Rect, obstacles []Rect) float32 {
	var sum float32
	for _, o := range obstacles {
		sum += Intersection(r, o).area()
	}
	return sum
}

func distance(a, b Pt) float32 {
	return float32(math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y)))
}

func clampInto(r, bounds Rect) Rect {
	r.X = max(bounds.X, min(r.X, bounds.X+bounds.W-r.W))
	r.Y = max(bounds.Y, min(r.Y, bounds.Y+bounds.H-r.H))
	return r
}
