/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crop turns an uploaded garment photo into the design background.
//
// A Session holds the decoded source, the crop window in source pixels and a
// preview zoom. Apply crops the source, scales it to cover the document and
// replaces every object of the document with the resulting background.
package crop

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/imaging"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/surface"
	"gotshirtdesigner/internal/vector"
)

// ErrInvalidSession is returned for operations on an absent or finished session.
var ErrInvalidSession = errors.New("crop session is not active")

const (
	MinZoom     = 0.5
	MaxZoom     = 3.0
	ZoomStep    = 0.1
	DefaultZoom = 1.0
)

type Session struct {
	Source image.Image
	Format string

	rect   image.Rectangle
	zoom   float64
	active bool
}

// Begin decodes data and opens a session on it.
func Begin(data []byte) (*Session, error) {
	img, format, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	s := NewSession(img)
	s.Format = format
	return s, nil
}

// NewSession opens a session on an already decoded image. The crop window
// starts as the centred largest square of the source.
func NewSession(src image.Image) *Session {
	return &Session{Source: src, rect: CenteredSquare(src.Bounds()), zoom: DefaultZoom, active: true}
}

// CenteredSquare returns the largest square inscribed in b, centred.
func CenteredSquare(b image.Rectangle) image.Rectangle {
	side := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x, y, x+side, y+side)
}

func (s *Session) Active() bool { return s != nil && s.active }

func (s *Session) Zoom() float64 { return s.zoom }

// Rect returns the crop window in source pixels.
func (s *Session) Rect() image.Rectangle { return s.rect }

// SetZoom moves the zoom one step toward requested and returns the new value.
func (s *Session) SetZoom(requested float64) float64 {
	if !s.Active() {
		return 0
	}
	z := s.zoom
	switch {
	case requested > z:
		z += ZoomStep
	case requested < z:
		z -= ZoomStep
	default:
		return z
	}
	s.zoom = vector.FloatRound(vector.Clamp(z, MinZoom, MaxZoom), 1)
	return s.zoom
}

// ZoomTo steps the zoom toward target until it is within half a step or
// clamped, and returns the final value.
func (s *Session) ZoomTo(target float64) float64 {
	if !s.Active() {
		return 0
	}
	for {
		if math.Abs(target-s.zoom) <= ZoomStep/2+1e-9 {
			return s.zoom
		}
		prev := s.zoom
		if s.SetZoom(target) == prev {
			return s.zoom
		}
	}
}

// SetCropRectangle stores r clamped to the source extent.
func (s *Session) SetCropRectangle(r image.Rectangle) error {
	if !s.Active() {
		return ErrInvalidSession
	}
	c := r.Canon().Intersect(s.Source.Bounds())
	if c.Empty() {
		return fmt.Errorf("crop rectangle %v outside source %v", r, s.Source.Bounds())
	}
	s.rect = c
	return nil
}

// Cancel discards the session.
func (s *Session) Cancel() error {
	if !s.Active() {
		return ErrInvalidSession
	}
	s.active = false
	s.Source = nil
	return nil
}

// CoverScale is the smallest uniform scale at which a w×h crop covers the document.
func CoverScale(docW, docH, w, h int) float64 {
	return math.Max(float64(docW)/float64(w), float64(docH)/float64(h))
}

// Background builds the cover-fit background for the current window without
// touching any document.
func (s *Session) Background(docW, docH int) (*domain.Object, error) {
	if !s.Active() {
		return nil, ErrInvalidSession
	}
	cropped := imaging.Crop(s.Source, s.rect)
	b := cropped.Bounds()
	return domain.NewBackground(cropped, CoverScale(docW, docH, b.Dx(), b.Dy())), nil
}

// Apply replaces the content of doc and surf with the cropped background
// and ends the session. On a surface error the document and the surface
// keep their previous objects.
func Apply(s *Session, doc *domain.Document, surf surface.Surface) (*domain.Object, error) {
	if !s.Active() {
		return nil, ErrInvalidSession
	}
	bg, err := s.Background(doc.Width, doc.Height)
	if err != nil {
		return nil, err
	}
	if !surf.Initialized() {
		return nil, surface.ErrNotInitialized
	}
	prev := surf.Objects()
	if err := surf.AddObject(bg); err != nil {
		return nil, fmt.Errorf("apply crop: %w", err)
	}
	for _, o := range prev {
		if err := surf.RemoveObject(o); err != nil {
			surf.ClearAll()
			_ = surf.AddObject(bg)
			break
		}
	}
	doc.ReplaceAll(bg)
	s.active = false
	s.Source = nil
	applog.WithComponent("crop").Info("background applied",
		slog.String("object", bg.ID), slog.Float64("scale", bg.ScaleX))
	if err := surf.RenderNow(); err != nil {
		return bg, fmt.Errorf("render background: %w", err)
	}
	return bg, nil
}

// Preview renders the crop window into a maxW×maxH viewport. At zoom 1 the
// window is fitted; larger zooms magnify around its centre.
func (s *Session) Preview(maxW, maxH int) (*image.RGBA, error) {
	if !s.Active() {
		return nil, ErrInvalidSession
	}
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("preview: invalid viewport %dx%d", maxW, maxH)
	}
	r := s.rect
	k := math.Min(float64(maxW)/float64(r.Dx()), float64(maxH)/float64(r.Dy())) * s.zoom
	vw := min(r.Dx(), int(math.Ceil(float64(maxW)/k)))
	vh := min(r.Dy(), int(math.Ceil(float64(maxH)/k)))
	cx, cy := r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2
	win := image.Rect(cx-vw/2, cy-vh/2, cx-vw/2+vw, cy-vh/2+vh).Intersect(r)
	w := max(1, min(maxW, int(math.Round(float64(win.Dx())*k))))
	h := max(1, min(maxH, int(math.Round(float64(win.Dy())*k))))
	return imaging.Scale(imaging.Crop(s.Source, win), w, h), nil
}
