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
	"fmt"
	"io"
	"log/slog"

	"gotshirtdesigner/internal/artifact"
	"gotshirtdesigner/internal/export"
	"gotshirtdesigner/internal/telemetry"
)

// ErrNoStore is returned by Publish when the session has no artifact store.
var ErrNoStore = errors.New("no artifact store configured")

// ExportDesign renders the design at multiplier m and returns PNG bytes.
func (s *Session) ExportDesign(ctx context.Context, m int) ([]byte, error) {
	var out []byte
	err := s.do(ctx, func() error {
		var err error
		out, err = s.engine.ExportPNG(s.doc, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.event(telemetry.EventDesignExported, map[string]any{"multiplier": m, "bytes": len(out)})
	return out, nil
}

// ExportFiles writes the preset outputs to disk.
func (s *Session) ExportFiles(ctx context.Context, opt export.BatchOptions) ([]export.Output, error) {
	var outs []export.Output
	err := s.do(ctx, func() error {
		var err error
		outs, err = export.BatchExport(s.engine, s.doc, opt)
		return err
	})
	for _, o := range outs {
		s.event(telemetry.EventDesignExported, map[string]any{"multiplier": o.Preset.Multiplier, "preset": string(o.Preset.Name)})
	}
	return outs, err
}

// ExportBundle writes a ZIP with one PNG per multiplier to w.
func (s *Session) ExportBundle(ctx context.Context, multipliers []int, w io.Writer) error {
	return s.do(ctx, func() error { return export.Bundle(s.engine, s.doc, multipliers, w) })
}

// Publish exports at multiplier m and offers the PNG for download through
// the artifact store. An empty name means tshirt_design.png.
func (s *Session) Publish(ctx context.Context, m int, name string) (artifact.Meta, error) {
	if s.store == nil {
		return artifact.Meta{}, ErrNoStore
	}
	data, err := s.ExportDesign(ctx, m)
	if err != nil {
		return artifact.Meta{}, err
	}
	if name == "" {
		name = export.DefaultFileName
	}
	meta, err := s.store.Put(ctx, &artifact.Artifact{
		Meta: artifact.Meta{Name: name, ContentType: "image/png", Multiplier: m},
		Data: data,
	})
	if err != nil {
		return artifact.Meta{}, fmt.Errorf("publish: %w", err)
	}
	s.log.Info("design published", slog.String("artifact", meta.ID), slog.Int64("size", meta.Size))
	return meta, nil
}
