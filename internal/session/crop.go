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
	"errors"
	"image"
	"log/slog"

	"gotshirtdesigner/internal/crop"
	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/imaging"
	"gotshirtdesigner/internal/telemetry"
)

// CropState is the read-only view of the open crop dialog.
type CropState struct {
	Active  bool            `json:"active"`
	Rect    image.Rectangle `json:"rect"`
	Zoom    float64         `json:"zoom"`
	SourceW int             `json:"sourceWidth"`
	SourceH int             `json:"sourceHeight"`
}

func (s *Session) cropState() CropState {
	if !s.crop.Active() {
		return CropState{}
	}
	b := s.crop.Source.Bounds()
	return CropState{Active: true, Rect: s.crop.Rect(), Zoom: s.crop.Zoom(), SourceW: b.Dx(), SourceH: b.Dy()}
}

// UploadBackground decodes data and opens the crop dialog on it. A cancel
// issued while decoding, or a newer upload that decodes successfully,
// supersedes this one, which then fails with ErrStale. A newer upload that
// fails to decode supersedes nothing.
func (s *Session) UploadBackground(ctx context.Context, data []byte) (CropState, error) {
	if s.closed.Load() {
		return CropState{}, ErrClosed
	}
	gen := s.cropGen.Load()
	ticket := s.uploadSeq.Add(1)
	img, format, err := imaging.Decode(data)
	if err != nil {
		s.log.Warn("background upload rejected", slog.Any("err", err))
		return CropState{}, err
	}
	s.markDecoded(ticket)
	afterDecode()
	var st CropState
	err = s.do(ctx, func() error {
		if s.cropGen.Load() != gen || s.decoded.Load() != ticket {
			return ErrStale
		}
		cs := crop.NewSession(img)
		cs.Format = format
		s.crop = cs
		st = s.cropState()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStale) {
			s.log.Debug("superseded background decode dropped")
		}
		return CropState{}, staleIfClosed(err)
	}
	return st, nil
}

// markDecoded records ticket as the newest decoded upload unless a later
// upload has already decoded.
func (s *Session) markDecoded(ticket uint64) {
	for {
		cur := s.decoded.Load()
		if cur > ticket || s.decoded.CompareAndSwap(cur, ticket) {
			return
		}
	}
}

// CropState returns the current crop dialog state.
func (s *Session) CropState(ctx context.Context) (CropState, error) {
	var st CropState
	err := s.do(ctx, func() error {
		st = s.cropState()
		return nil
	})
	return st, err
}

// SetZoom steps the crop zoom toward requested.
func (s *Session) SetZoom(ctx context.Context, requested float64) (float64, error) {
	var z float64
	err := s.do(ctx, func() error {
		if !s.crop.Active() {
			return ErrNoCrop
		}
		z = s.crop.SetZoom(requested)
		return nil
	})
	return z, err
}

// ZoomTo repeats SetZoom until the zoom is as close to target as the step grid allows.
func (s *Session) ZoomTo(ctx context.Context, target float64) (float64, error) {
	var z float64
	err := s.do(ctx, func() error {
		if !s.crop.Active() {
			return ErrNoCrop
		}
		z = s.crop.ZoomTo(target)
		return nil
	})
	return z, err
}

// SetCropRectangle stores the crop window in source pixels.
func (s *Session) SetCropRectangle(ctx context.Context, r image.Rectangle) error {
	return s.do(ctx, func() error { return s.crop.SetCropRectangle(r) })
}

// CropPreview renders the crop window into a maxW×maxH viewport.
func (s *Session) CropPreview(ctx context.Context, maxW, maxH int) (*image.RGBA, error) {
	var out *image.RGBA
	err := s.do(ctx, func() error {
		var err error
		out, err = s.crop.Preview(maxW, maxH)
		return err
	})
	return out, err
}

// ApplyCrop replaces every object with the cropped background.
func (s *Session) ApplyCrop(ctx context.Context) (*domain.Object, error) {
	var bg *domain.Object
	err := s.do(ctx, func() error {
		var err error
		bg, err = crop.Apply(s.crop, s.doc, s.surf)
		if bg != nil {
			s.crop = nil
			s.notify()
		}
		return err
	})
	if err != nil {
		return bg, err
	}
	s.event(telemetry.EventCropApplied, map[string]any{"scale": bg.ScaleX})
	return bg, nil
}

// CancelCrop closes the crop dialog without touching the document. It also
// supersedes a background decode still in flight.
func (s *Session) CancelCrop(ctx context.Context) error {
	s.cropGen.Add(1)
	return s.do(ctx, func() error {
		err := s.crop.Cancel()
		s.crop = nil
		return err
	})
}
