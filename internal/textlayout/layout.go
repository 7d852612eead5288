/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Abstractions for text measurement. Renderers and the session share these so
// that a text layer's measured box matches what is drawn.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"gotshirtdesigner/internal/domain"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Bold reports whether the weight falls into the bold bucket.
func (s FontSpec) Bold() bool { return s.Weight >= 600 }

// SpecFor derives the font request of a text layer.
func SpecFor(o *domain.Object) FontSpec {
	w := 400
	if o.FontWeight == domain.WeightBold {
		w = 700
	}
	return FontSpec{
		Family: string(o.FontFamily),
		SizePt: float32(o.FontSize),
		Weight: w,
		Italic: o.FontStyle == domain.StyleItalic,
	}
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is the baseline-to-baseline distance.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func advance(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// Lines splits text into its hard lines.
func Lines(text string) []string { return strings.Split(text, "\n") }

// Block is the measured extent of a multi-line text.
type Block struct {
	Width      float64
	Height     float64
	LineWidths []float64
	Metrics    Metrics
}

// Measure returns the extent of text set in spec without wrapping. Lines are
// separated by "\n"; the block height is ascent+descent of the first line plus
// one line height per additional line.
func Measure(provider Provider, spec FontSpec, text string) Block {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Resolve(spec)
	lines := Lines(text)
	b := Block{Metrics: met, LineWidths: make([]float64, len(lines))}
	for i, ln := range lines {
		w := advance(face, ln)
		b.LineWidths[i] = w
		if w > b.Width {
			b.Width = w
		}
	}
	b.Height = met.Ascent + met.Descent + float64(len(lines)-1)*met.LineHeight()
	return b
}

// Measurer measures text layers against a font library.
type Measurer struct {
	Provider Provider
}

// NewMeasurer uses the shared default font library at 72 dpi (1pt = 1 unit).
func NewMeasurer() Measurer {
	return Measurer{Provider: OTProvider{Lib: Default()}}
}

// MeasureText returns the natural (unscaled) size of a text layer.
func (m Measurer) MeasureText(o *domain.Object) (w, h float64) {
	b := Measure(m.Provider, SpecFor(o), o.Text)
	return b.Width, b.Height
}

// Layout returns the full measured block for a text layer.
func (m Measurer) Layout(o *domain.Object) Block {
	return Measure(m.Provider, SpecFor(o), o.Text)
}
