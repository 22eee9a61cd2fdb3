/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"image"

	"golang.org/x/image/draw"

	"slidecanvas/internal/geom"
)

// Thumbnail scales src down so its longer side is at most maxSide pixels.
// Smaller images are copied unchanged.
func Thumbnail(src image.Image, maxSide int) *image.RGBA {
	b := src.Bounds()
	size := geom.FitWithin(geom.Size{W: float64(b.Dx()), H: float64(b.Dy())}, geom.Size{W: float64(maxSide), H: float64(maxSide)})
	w, h := max(int(size.W), 1), max(int(size.H), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
