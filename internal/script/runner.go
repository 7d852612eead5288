/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gotshirtdesigner/internal/artifact"
	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/export"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/session"
	"gotshirtdesigner/internal/telemetry"
	"gotshirtdesigner/internal/toolbar"
)

var ErrNoSelection = errors.New("select: no object at that position")

// Options controls how file paths in a script resolve.
type Options struct {
	BaseDir  string // inputs; empty means the working directory
	OutDir   string // outputs; empty means BaseDir/exports
	FileName string // default export name
}

// Result lists what a run produced.
type Result struct {
	Actions   int
	Files     []string
	Published []artifact.Meta
}

// Runner executes scripts against one session.
type Runner struct {
	sess *session.Session
	opt  Options
	log  *slog.Logger
}

func NewRunner(s *session.Session, opt Options) *Runner {
	if opt.FileName == "" {
		opt.FileName = export.DefaultFileName
	}
	return &Runner{sess: s, opt: opt, log: applog.WithSession(applog.WithComponent("script"), s.ID())}
}

// Run executes every action in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, sc Script) (Result, error) {
	start := time.Now()
	var res Result
	for i, a := range sc.Actions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.step(ctx, a, &res); err != nil {
			r.log.Error("script action failed", slog.Int("action", i+1), slog.String("op", string(a.Op)), slog.Any("err", err))
			return res, fmt.Errorf("action %d (%s): %w", i+1, a.Op, err)
		}
		res.Actions++
	}
	r.log.Info("script finished", slog.Int("actions", res.Actions), slog.Int("files", len(res.Files)), slog.Duration("took", time.Since(start)))
	telemetry.Event(telemetry.EventScriptRun, map[string]any{"actions": res.Actions, "files": len(res.Files)})
	return res, nil
}

func (r *Runner) step(ctx context.Context, a Action, res *Result) error {
	switch a.Op {
	case OpBackground:
		data, err := r.read(a.File)
		if err != nil {
			return err
		}
		if _, err := r.sess.UploadBackground(ctx, data); err != nil {
			return err
		}
		return r.crop(ctx, a)
	case OpCrop:
		return r.crop(ctx, a)
	case OpLogo:
		data, err := r.read(a.File)
		if err != nil {
			return err
		}
		_, err = r.sess.UploadLogo(ctx, data)
		return err
	case OpText:
		_, err := r.sess.AddText(ctx, a.Text)
		return err
	case OpStyle:
		return r.sess.Style(ctx, func(tb *toolbar.Toolbar) error { return applyStyle(tb, a) })
	case OpSelect:
		return r.selectObject(ctx, a)
	case OpDelete:
		_, err := r.sess.Delete(ctx)
		return err
	case OpClear:
		return r.sess.ClearCanvas(ctx)
	case OpColor:
		return r.sess.SetBackgroundColor(ctx, a.Color)
	case OpExport:
		return r.export(ctx, a, res)
	}
	return fmt.Errorf("unknown op %q", a.Op)
}

// crop adjusts the open crop and applies it unless the action cancels.
func (r *Runner) crop(ctx context.Context, a Action) error {
	if a.Zoom != nil {
		if _, err := r.sess.ZoomTo(ctx, *a.Zoom); err != nil {
			return err
		}
	}
	if a.Rect != nil {
		rc := image.Rect(a.Rect.X, a.Rect.Y, a.Rect.X+a.Rect.W, a.Rect.Y+a.Rect.H)
		if err := r.sess.SetCropRectangle(ctx, rc); err != nil {
			return err
		}
	}
	if a.Cancel {
		return r.sess.CancelCrop(ctx)
	}
	_, err := r.sess.ApplyCrop(ctx)
	return err
}

func applyStyle(tb *toolbar.Toolbar, a Action) error {
	st := tb.State()
	if a.Text != "" {
		if err := tb.SetText(a.Text); err != nil {
			return err
		}
	}
	if a.FontSize > 0 {
		if err := tb.SetFontSize(a.FontSize); err != nil {
			return err
		}
	}
	if a.FontFamily != "" {
		if err := tb.SetFontFamily(domain.FontFamily(a.FontFamily)); err != nil {
			return err
		}
	}
	if a.Fill != "" {
		if err := tb.SetFill(a.Fill); err != nil {
			return err
		}
	}
	if a.Align != "" {
		if err := tb.SetTextAlign(domain.Align(a.Align)); err != nil {
			return err
		}
	}
	if a.Bold != nil && *a.Bold != (st.FontWeight == domain.WeightBold) {
		if err := tb.ToggleBold(); err != nil {
			return err
		}
	}
	if a.Italic != nil && *a.Italic != (st.FontStyle == domain.StyleItalic) {
		if err := tb.ToggleItalic(); err != nil {
			return err
		}
	}
	if a.Underline != nil && *a.Underline != st.Underline {
		if err := tb.ToggleUnderline(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) selectObject(ctx context.Context, a Action) error {
	if a.Index != nil {
		objs, err := r.sess.Objects(ctx)
		if err != nil {
			return err
		}
		if *a.Index >= len(objs) {
			return fmt.Errorf("select: index %d out of range (%d objects)", *a.Index, len(objs))
		}
		return r.sess.Select(ctx, objs[*a.Index].ID)
	}
	if a.X == nil || a.Y == nil {
		return errors.New("select: index or x and y required")
	}
	id, err := r.sess.Pick(ctx, *a.X, *a.Y)
	if err != nil {
		return err
	}
	if id == "" {
		return ErrNoSelection
	}
	return nil
}

func (r *Runner) export(ctx context.Context, a Action, res *Result) error {
	m := a.Multiplier
	if m == 0 {
		m = 1
	}
	switch {
	case a.Publish:
		meta, err := r.sess.Publish(ctx, m, a.Name)
		if err != nil {
			return err
		}
		res.Published = append(res.Published, meta)
		return nil
	case a.Bundle != "":
		path := r.out(a.Bundle)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := r.sess.ExportBundle(ctx, a.Multipliers, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		res.Files = append(res.Files, path)
		return nil
	case len(a.Presets) > 0:
		names := make([]export.PresetName, 0, len(a.Presets))
		for _, p := range a.Presets {
			preset, err := export.LookupPreset(p)
			if err != nil {
				return err
			}
			names = append(names, preset.Name)
		}
		file := a.File
		if file == "" {
			file = r.opt.FileName
		}
		outs, err := r.sess.ExportFiles(ctx, export.BatchOptions{Presets: names, OutDir: r.outDir(), FileName: file})
		if err != nil {
			return err
		}
		for _, o := range outs {
			res.Files = append(res.Files, o.PNGPath)
			if o.PDFPath != "" {
				res.Files = append(res.Files, o.PDFPath)
			}
		}
		return nil
	}
	file := a.File
	if file == "" {
		file = r.opt.FileName
	}
	data, err := r.sess.ExportDesign(ctx, m)
	if err != nil {
		return err
	}
	path := r.out(file)
	if err := export.WriteFile(path, data); err != nil {
		return err
	}
	res.Files = append(res.Files, path)
	return nil
}

func (r *Runner) read(name string) ([]byte, error) {
	if !filepath.IsAbs(name) && r.opt.BaseDir != "" {
		name = filepath.Join(r.opt.BaseDir, name)
	}
	return os.ReadFile(name)
}

func (r *Runner) outDir() string {
	return export.ResolveOutDir(r.opt.BaseDir, r.opt.OutDir)
}

func (r *Runner) out(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.outDir(), name)
}
