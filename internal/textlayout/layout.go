/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps dialogue and annotation text for the renderer.
// Measurement goes through a Provider so tests can rely on the fixed-size basic font.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float32
	Bold   bool
}

// Metrics are pixel metrics of a resolved face.
type Metrics struct {
	Ascent, Descent, LineGap int
}

// LineHeight is the baseline-to-baseline distance.
func (m Metrics) LineHeight() int { return m.Ascent + m.Descent + m.LineGap }

// Provider maps a FontSpec to a concrete face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider always answers with basicfont.Face7x13.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  m.Ascent.Round(),
		Descent: m.Descent.Round(),
		LineGap: m.Height.Round() - m.Ascent.Round() - m.Descent.Round(),
	}
}

// Block is text broken into lines that fit a width.
type Block struct {
	Lines   []string
	Width   int
	Height  int
	Metrics Metrics
}

// Wrapper breaks text on whitespace. Words wider than the box are split by rune.
// Explicit newlines always start a new line.
type Wrapper struct {
	Provider Provider
	Font     FontSpec
}

func NewWrapper(p Provider, spec FontSpec) *Wrapper {
	if p == nil {
		p = BasicProvider{}
	}
	return &Wrapper{Provider: p, Font: spec}
}

// Face returns the resolved face and metrics.
func (w *Wrapper) Face() (font.Face, Metrics) { return w.Provider.Resolve(w.Font) }

// Wrap lays out text into lines no wider than maxWidth pixels (0 disables wrapping).
func (w *Wrapper) Wrap(text string, maxWidth int) Block {
	face, met := w.Face()
	d := &font.Drawer{Face: face}
	b := Block{Metrics: met}
	push := func(s string) {
		b.Lines = append(b.Lines, s)
		if lw := width(d, s); lw > b.Width {
			b.Width = lw
		}
	}
	for _, para := range strings.Split(text, "\n") {
		cur := ""
		for _, word := range strings.Fields(para) {
			cand := word
			if cur != "" {
				cand = cur + " " + word
			}
			if maxWidth <= 0 || width(d, cand) <= maxWidth {
				cur = cand
				continue
			}
			if cur != "" {
				push(cur)
			}
			cur = ""
			for _, piece := range splitRunes(d, word, maxWidth) {
				if cur != "" {
					push(cur)
				}
				cur = piece
			}
		}
		push(cur)
	}
	b.Height = len(b.Lines) * met.LineHeight()
	return b
}

// splitRunes cuts word into pieces no wider than maxWidth, at least one rune each.
func splitRunes(d *font.Drawer, word string, maxWidth int) []string {
	var out []string
	var cur []rune
	for _, r := range word {
		if len(cur) > 0 && width(d, string(append(cur, r))) > maxWidth {
			out = append(out, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func width(d *font.Drawer, s string) int { return d.MeasureString(s).Round() }

// Measure returns the single-line width of s.
func Measure(p Provider, spec FontSpec, s string) int {
	if p == nil {
		p = BasicProvider{}
	}
	face, _ := p.Resolve(spec)
	return width(&font.Drawer{Face: face}, s)
}
