/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/imaging"
	"gotshirtdesigner/internal/telemetry"
)

// LogoMaxFraction bounds a new logo to this share of each document axis.
const LogoMaxFraction = 0.3

// LogoPlacement returns the fit-within scale and centred top-left position of
// a w×h logo on a docW×docH document.
func LogoPlacement(docW, docH int, w, h float64) (scale, x, y float64) {
	maxW := LogoMaxFraction * float64(docW)
	maxH := LogoMaxFraction * float64(docH)
	scale = math.Min(maxW/w, maxH/h)
	x = (float64(docW) - w*scale) / 2
	y = (float64(docH) - h*scale) / 2
	return scale, x, y
}

// UploadLogo decodes data and appends it as a centred, selectable image layer.
func (s *Session) UploadLogo(ctx context.Context, data []byte) (*domain.Object, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		s.log.Warn("logo upload rejected", slog.Any("err", err))
		return nil, err
	}
	afterDecode()
	var out *domain.Object
	err = s.do(ctx, func() error {
		o, err := s.addImage(img)
		out = o
		return err
	})
	if err != nil {
		return nil, staleIfClosed(err)
	}
	s.event(telemetry.EventLogoAdded, nil)
	return out, nil
}

func (s *Session) addImage(img image.Image) (*domain.Object, error) {
	b := img.Bounds()
	scale, x, y := LogoPlacement(s.doc.Width, s.doc.Height, float64(b.Dx()), float64(b.Dy()))
	o := domain.NewImageLayer(img, x, y, scale)
	if err := s.surf.AddObject(o); err != nil {
		return nil, fmt.Errorf("add logo: %w", err)
	}
	s.doc.Append(o)
	s.log.Info("logo added", slog.String("object", o.ID), slog.Float64("scale", scale))
	return o, s.surf.RenderNow()
}

// AddText appends a text layer with the default style, centred using its
// measured size, and selects it.
func (s *Session) AddText(ctx context.Context, text string) (*domain.Object, error) {
	var out *domain.Object
	err := s.do(ctx, func() error {
		o := domain.NewTextLayer(text)
		w, h := s.measurer.MeasureText(o)
		o.X = (float64(s.doc.Width) - w) / 2
		o.Y = (float64(s.doc.Height) - h) / 2
		o.SetNaturalSize(w, h)
		if err := s.surf.AddObject(o); err != nil {
			return fmt.Errorf("add text: %w", err)
		}
		s.doc.Append(o)
		if err := s.surf.SetActiveObject(o); err != nil {
			return err
		}
		out = o
		s.log.Info("text added", slog.String("object", o.ID))
		return s.surf.RenderNow()
	})
	if err != nil {
		return nil, err
	}
	s.event(telemetry.EventTextAdded, nil)
	return out, nil
}

// ClearCanvas removes every object and returns selection to Idle. The
// background colour is kept.
func (s *Session) ClearCanvas(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.surf.ClearAll()
		s.doc.Clear()
		s.log.Info("canvas cleared")
		s.notify()
		return s.surf.RenderNow()
	})
}

// SetBackgroundColor changes the shirt colour behind all layers.
func (s *Session) SetBackgroundColor(ctx context.Context, hex string) error {
	return s.do(ctx, func() error {
		if err := s.surf.SetBackgroundColor(hex); err != nil {
			return err
		}
		return s.surf.RenderNow()
	})
}

// Select activates the object with id.
func (s *Session) Select(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		o := s.doc.Find(id)
		if o == nil {
			return fmt.Errorf("select %s: %w", id, ErrUnknownObject)
		}
		return s.sel.Select(o)
	})
}

// Deselect clears the selection.
func (s *Session) Deselect(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.surf.DiscardActiveObject()
		return nil
	})
}

// Pick selects the topmost selectable object at (x, y) and returns its id,
// or "" when the point hits nothing.
func (s *Session) Pick(ctx context.Context, x, y float64) (string, error) {
	var id string
	err := s.do(ctx, func() error {
		if o := s.sel.Pick(x, y); o != nil {
			id = o.ID
		}
		return nil
	})
	return id, err
}

// Move sets the top-left position of an object, as a drag on the surface would.
func (s *Session) Move(ctx context.Context, id string, x, y float64) error {
	return s.do(ctx, func() error {
		o := s.doc.Find(id)
		if o == nil || !o.Selectable {
			return fmt.Errorf("move %s: %w", id, ErrUnknownObject)
		}
		g := o.Geometry()
		g.X, g.Y = x, y
		o.SetGeometry(g)
		return s.surf.RenderNow()
	})
}

// Delete removes the selected object. It reports whether one was removed.
func (s *Session) Delete(ctx context.Context) (bool, error) {
	var ok bool
	err := s.do(ctx, func() error {
		var err error
		ok, err = s.sel.Delete()
		return err
	})
	return ok, err
}

// HandleKey routes a key press; Delete removes the selection unless a text
// field has focus.
func (s *Session) HandleKey(ctx context.Context, key string, focusInTextField bool) (bool, error) {
	var ok bool
	err := s.do(ctx, func() error {
		var err error
		ok, err = s.sel.HandleKey(key, focusInTextField)
		return err
	})
	return ok, err
}
