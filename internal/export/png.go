/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders the design at a resolution multiplier and writes
// the results as PNG, PDF or ZIP bundles.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gotshirtdesigner/internal/domain"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/surface"
)

var (
	ErrEmptyDocument     = errors.New("nothing to export: document has no objects")
	ErrInvalidMultiplier = errors.New("export multiplier must be a positive integer")
)

// DefaultFileName is the suggested download name of an export.
const DefaultFileName = "tshirt_design.png"

// Engine performs the scale-up, render, scale-down export on a surface.
type Engine struct {
	surf surface.Surface
	log  *slog.Logger
}

func NewEngine(s surface.Surface) *Engine {
	return &Engine{surf: s, log: applog.WithComponent("export")}
}

// ExportPNG renders doc at m times the surface size and returns PNG bytes.
// Object geometry and surface size are restored on every return path.
func (e *Engine) ExportPNG(doc *domain.Document, m int) (out []byte, err error) {
	if !e.surf.Initialized() {
		return nil, surface.ErrNotInitialized
	}
	if doc == nil || doc.Len() == 0 {
		return nil, ErrEmptyDocument
	}
	if m <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMultiplier, m)
	}
	start := time.Now()
	w, h := e.surf.Size()
	objs := append([]*domain.Object(nil), doc.Objects...)
	saved := make([]domain.Geometry, len(objs))
	for i, o := range objs {
		saved[i] = o.Geometry()
	}
	defer func() {
		for i, o := range objs {
			o.SetGeometry(saved[i])
		}
		if rerr := e.surf.Resize(w, h); rerr != nil && err == nil {
			err = fmt.Errorf("restore surface size: %w", rerr)
		}
		if rerr := e.surf.RenderNow(); rerr != nil {
			e.log.Warn("redraw after export failed", slog.Any("err", rerr))
		}
	}()

	k := float64(m)
	if err := e.surf.Resize(w*m, h*m); err != nil {
		return nil, fmt.Errorf("resize for export: %w", err)
	}
	for _, o := range objs {
		g := o.Geometry()
		o.SetGeometry(domain.Geometry{X: g.X * k, Y: g.Y * k, ScaleX: g.ScaleX * k, ScaleY: g.ScaleY * k})
	}
	out, err = e.surf.RenderToBytes(surface.FormatPNG, 1)
	if err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}
	e.log.Info("design exported",
		slog.Int("multiplier", m),
		slog.Int("w", w*m), slog.Int("h", h*m),
		slog.Int("bytes", len(out)),
		slog.Duration("took", time.Since(start)))
	return out, nil
}

// WriteFile stores data at path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
