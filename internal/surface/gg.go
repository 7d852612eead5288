/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"

	"gotshirtdesigner/internal/domain"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/textlayout"
)

var ggLoggerOnce sync.Once

// GG is a CPU surface drawn with gogpu/gg. Text layers are measured with the
// shared textlayout library and drawn from the same font files.
type GG struct {
	scene
	dc       *gg.Context
	w, h     int
	fonts    *textlayout.FontLibrary
	measurer textlayout.Measurer
	sources  map[string]*text.FontSource
	bufs     map[*domain.Object]*gg.ImageBuf
	log      *slog.Logger
}

// NewGG returns an uninitialized surface; call Create before use.
func NewGG() *GG {
	ggLoggerOnce.Do(func() { gg.SetLogger(applog.WithComponent("gg")) })
	lib := textlayout.Default()
	return &GG{
		fonts:    lib,
		measurer: textlayout.Measurer{Provider: textlayout.OTProvider{Lib: lib}},
		sources:  make(map[string]*text.FontSource),
		bufs:     make(map[*domain.Object]*gg.ImageBuf),
		log:      applog.WithComponent("surface"),
	}
}

var _ Surface = (*GG)(nil)

func (s *GG) Create(w, h int, background string) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("create surface: invalid size %dx%d", w, h)
	}
	bg, err := domain.NormalizeColor(background)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	if s.dc != nil {
		_ = s.dc.Close()
	}
	s.dc = gg.NewContext(w, h)
	s.w, s.h = w, h
	s.bg = bg
	s.log.Debug("surface created", slog.Int("w", w), slog.Int("h", h), slog.String("bg", bg))
	return nil
}

func (s *GG) Initialized() bool { return s.dc != nil }

func (s *GG) Size() (int, int) { return s.w, s.h }

func (s *GG) Resize(w, h int) error {
	if s.dc == nil {
		return ErrNotInitialized
	}
	if err := s.dc.Resize(w, h); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	s.w, s.h = w, h
	return nil
}

// Dispose releases the drawing context and font sources. Objects and
// subscriptions are dropped as well.
func (s *GG) Dispose() {
	if s.dc != nil {
		_ = s.dc.Close()
		s.dc = nil
	}
	for k, src := range s.sources {
		_ = src.Close()
		delete(s.sources, k)
	}
	s.bufs = make(map[*domain.Object]*gg.ImageBuf)
	s.objects = nil
	s.active = nil
	s.handlers = [3][]subscription{}
}

func (s *GG) AddObject(o *domain.Object) error {
	if s.dc == nil {
		return ErrNotInitialized
	}
	if err := s.scene.add(o); err != nil {
		return err
	}
	if o.IsText() {
		o.SetNaturalSize(s.measurer.MeasureText(o))
	}
	return nil
}

func (s *GG) RemoveObject(o *domain.Object) error {
	if err := s.scene.remove(o); err != nil {
		return err
	}
	delete(s.bufs, o)
	return nil
}

func (s *GG) ClearAll() {
	s.scene.clearAll()
	s.bufs = make(map[*domain.Object]*gg.ImageBuf)
}

func (s *GG) SetActiveObject(o *domain.Object) error { return s.scene.setActive(o) }

func (s *GG) SetBackgroundColor(hex string) error {
	bg, err := domain.NormalizeColor(hex)
	if err != nil {
		return err
	}
	s.bg = bg
	return nil
}

// RenderNow re-measures text layers and redraws the whole scene.
func (s *GG) RenderNow() error {
	if s.dc == nil {
		return ErrNotInitialized
	}
	s.remeasure()
	return s.draw(s.dc, 1)
}

// RenderToBytes draws the scene at multiplier times the current surface size
// and encodes it. The surface itself is left at its current size.
func (s *GG) RenderToBytes(format Format, multiplier float64) ([]byte, error) {
	if s.dc == nil {
		return nil, ErrNotInitialized
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("render: invalid multiplier %v", multiplier)
	}
	s.remeasure()
	dc := s.dc
	if multiplier != 1 {
		w := int(math.Round(float64(s.w) * multiplier))
		h := int(math.Round(float64(s.h) * multiplier))
		dc = gg.NewContext(w, h)
		defer func() { _ = dc.Close() }()
	}
	if err := s.draw(dc, multiplier); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch format {
	case FormatPNG, "":
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case FormatJPEG:
		if err := dc.EncodeJPEG(&buf, 100); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrFormat, format)
	}
	return buf.Bytes(), nil
}

// Image returns the last rendered frame.
func (s *GG) Image() image.Image {
	if s.dc == nil {
		return nil
	}
	return s.dc.Image()
}

func (s *GG) remeasure() {
	for _, o := range s.objects {
		if o.IsText() {
			o.SetNaturalSize(s.measurer.MeasureText(o))
		}
	}
}

func (s *GG) draw(dc *gg.Context, k float64) error {
	dc.ClearWithColor(gg.Hex(s.bg))
	for _, o := range s.objects {
		switch o.Kind {
		case domain.KindBackground, domain.KindImage:
			s.drawBitmap(dc, o, k)
		case domain.KindText:
			if err := s.drawText(dc, o, k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *GG) drawBitmap(dc *gg.Context, o *domain.Object, k float64) {
	if o.Bitmap == nil {
		return
	}
	buf, ok := s.bufs[o]
	if !ok {
		buf = gg.ImageBufFromImage(o.Bitmap)
		s.bufs[o] = buf
	}
	dc.DrawImageEx(buf, gg.DrawImageOptions{
		X:             o.X * k,
		Y:             o.Y * k,
		DstWidth:      o.NaturalW * o.ScaleX * k,
		DstHeight:     o.NaturalH * o.ScaleY * k,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
}

func (s *GG) fontSource(spec textlayout.FontSpec) (*text.FontSource, error) {
	key := fmt.Sprintf("%s|%t|%t", spec.Family, spec.Bold(), spec.Italic)
	if src, ok := s.sources[key]; ok {
		return src, nil
	}
	ttf, ok := s.fonts.TTF(spec)
	if !ok {
		return nil, fmt.Errorf("no font for %q", spec.Family)
	}
	src, err := text.NewFontSource(ttf)
	if err != nil {
		return nil, fmt.Errorf("load font %q: %w", spec.Family, err)
	}
	s.sources[key] = src
	return src, nil
}

// drawText lays out each hard line inside the measured box. The glyph size
// follows ScaleY; ScaleX only affects line placement.
func (s *GG) drawText(dc *gg.Context, o *domain.Object, k float64) error {
	if o.Text == "" {
		return nil
	}
	spec := textlayout.SpecFor(o)
	src, err := s.fontSource(spec)
	if err != nil {
		return err
	}
	blk := s.measurer.Layout(o)
	dc.SetFont(src.Face(float64(o.FontSize) * o.ScaleY * k))
	dc.SetHexColor(o.Fill)
	dc.SetLineWidth(math.Max(1, float64(o.FontSize)/15*o.ScaleY*k))

	for i, ln := range textlayout.Lines(o.Text) {
		lw := blk.LineWidths[i]
		var dx float64
		switch o.TextAlign {
		case domain.AlignCenter:
			dx = (blk.Width - lw) / 2
		case domain.AlignRight:
			dx = blk.Width - lw
		}
		x := (o.X + dx*o.ScaleX) * k
		base := (o.Y + (blk.Metrics.Ascent+float64(i)*blk.Metrics.LineHeight())*o.ScaleY) * k
		dc.DrawString(ln, x, base)
		if o.Underline && lw > 0 {
			uy := base + blk.Metrics.Descent*0.4*o.ScaleY*k
			dc.DrawLine(x, uy, x+lw*o.ScaleX*k, uy)
			if err := dc.Stroke(); err != nil {
				return fmt.Errorf("underline: %w", err)
			}
		}
	}
	return nil
}
