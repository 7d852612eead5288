/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	if c := r.Center(); c.X != 60 || c.Y != 45 {
		t.Fatalf("unexpected center: %+v", c)
	}
}

func TestRectIntersectAndUnion(t *testing.T) {
	a := R(0, 0, 10, 10)
	b := R(5, 5, 10, 10)
	if got := a.Intersect(b); got != R(5, 5, 5, 5) {
		t.Fatalf("intersect: %+v", got)
	}
	if got := a.Intersect(R(20, 20, 1, 1)); !got.Empty() {
		t.Fatalf("expected empty intersection, got %+v", got)
	}
	if got := a.Union(b); got != R(0, 0, 15, 15) {
		t.Fatalf("union: %+v", got)
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
	back := m.Invert().Apply(p)
	if back.X != 1 || back.Y != 1 {
		t.Fatalf("invert round trip: %+v", back)
	}
	if (Affine2D{}).Invert() != Identity {
		t.Fatalf("singular matrix should invert to identity")
	}
}

func TestFrameBoundsAndHit(t *testing.T) {
	f := PlacedFrame(100, 50, 10, 20, 2, 0.5)
	b := f.Bounds()
	if b != R(10, 20, 200, 25) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	if !f.Hit(Pt{150, 30}) {
		t.Fatalf("expected hit inside scaled frame")
	}
	if f.Hit(Pt{5, 30}) || f.Hit(Pt{150, 50}) {
		t.Fatalf("expected miss outside scaled frame")
	}
}

func TestFloatRoundAndClamp(t *testing.T) {
	if got := FloatRound(1.0000000000000002, 1); got != 1.0 {
		t.Fatalf("FloatRound = %v", got)
	}
	if got := FloatRound(0.1+0.2, 1); got != 0.3 {
		t.Fatalf("FloatRound = %v", got)
	}
	if Clamp(4, 0.5, 3) != 3 || Clamp(0.1, 0.5, 3) != 0.5 || Clamp(2, 0.5, 3) != 2 {
		t.Fatalf("Clamp mismatch")
	}
}
