/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"

	xdraw "golang.org/x/image/draw"
)

// GIFEncoder encodes frames as a looping GIF with the Plan9 palette.
type GIFEncoder struct {
	// Dither enables Floyd-Steinberg error diffusion.
	Dither bool
}

func (e GIFEncoder) Encode(ctx context.Context, frames []Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames")
	}
	for i, f := range frames {
		if f.Image == nil {
			return nil, fmt.Errorf("frame %d: nil image", i)
		}
	}
	anim := &gif.GIF{LoopCount: 0}
	bounds := frames[0].Image.Bounds()
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pm := image.NewPaletted(bounds, palette.Plan9)
		if e.Dither {
			xdraw.FloydSteinberg.Draw(pm, bounds, f.Image, f.Image.Bounds().Min)
		} else {
			xdraw.Draw(pm, bounds, f.Image, f.Image.Bounds().Min, xdraw.Src)
		}
		anim.Image = append(anim.Image, pm)
		anim.Delay = append(anim.Delay, int(f.Delay.Milliseconds()/10))
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
