/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Frame is a placed box: a local size positioned by a transform.
// Design objects describe their on-surface footprint with a Frame so that
// bounds and hit-testing share one code path.
type Frame struct {
	Local Size
	Xf    Affine2D
}

// PlacedFrame builds the frame for a box of natural size w×h, scaled by sx,sy
// and whose top-left corner sits at (x, y).
func PlacedFrame(w, h, x, y, sx, sy float64) Frame {
	return Frame{Local: Size{W: w, H: h}, Xf: Translate(x, y).Mul(Scale(sx, sy))}
}

// Bounds returns the axis-aligned bounding box after transform.
func (f Frame) Bounds() Rect {
	return f.Xf.TransformRect(Rect{W: f.Local.W, H: f.Local.H})
}

// Hit reports whether p lies inside the transformed box.
func (f Frame) Hit(p Pt) bool {
	q := f.Xf.Invert().Apply(p)
	return Rect{W: f.Local.W, H: f.Local.H}.Contains(q)
}
