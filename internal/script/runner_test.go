/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gotshirtdesigner/internal/artifact"
	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/session"
)

func writePNG(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newRunner(t *testing.T, dir string) (*Runner, *session.Session, artifact.Store) {
	t.Helper()
	store := artifact.NewMemory()
	s, err := session.New(session.Options{Width: 100, Height: 120, Store: store, Events: func(string, map[string]any) {}})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return NewRunner(s, Options{BaseDir: dir, OutDir: "out"}), s, store
}

func mustParse(t *testing.T, in string) Script {
	t.Helper()
	s, errs := Parse([]byte(in))
	if len(errs) != 0 {
		t.Fatalf("parse: %+v", errs)
	}
	return s
}

func TestRunDesignAndExports(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "shirt.png"), 40, 40, color.RGBA{R: 200, A: 255})
	writePNG(t, filepath.Join(dir, "logo.png"), 20, 10, color.RGBA{B: 200, A: 255})

	r, s, store := newRunner(t, dir)
	sc := mustParse(t, `{
	  "version": 1,
	  "actions": [
	    {"op": "background", "file": "shirt.png", "rect": {"x": 5, "y": 5, "w": 20, "h": 20}},
	    {"op": "logo", "file": "logo.png"},
	    {"op": "text", "text": "Hi"},
	    {"op": "style", "fontSize": 30, "fill": "#00FF00", "bold": true, "underline": true},
	    {"op": "export", "multiplier": 2, "file": "x2.png"},
	    {"op": "export", "presets": ["web", "print"], "file": "shirt.png"},
	    {"op": "export", "bundle": "all.zip", "multipliers": [1, 3]},
	    {"op": "export", "publish": true, "name": "download.png"}
	  ]
	}`)
	res, err := r.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Actions != 8 {
		t.Fatalf("expected 8 actions, got %d", res.Actions)
	}
	// x2.png, web png, print png + pdf, all.zip
	if len(res.Files) != 5 {
		t.Fatalf("expected 5 files, got %v", res.Files)
	}
	for _, f := range res.Files {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("missing output %s: %v", f, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "out", "x2.png"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(f)
	_ = f.Close()
	if err != nil || cfg.Width != 200 || cfg.Height != 240 {
		t.Fatalf("expected 200x240 export, got %+v (%v)", cfg, err)
	}

	zr, err := zip.OpenReader(filepath.Join(dir, "out", "all.zip"))
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	names := map[string]bool{}
	for _, zf := range zr.File {
		names[zf.Name] = true
	}
	_ = zr.Close()
	if !names["design-x1.png"] || !names["design-x3.png"] {
		t.Fatalf("unexpected bundle entries: %v", names)
	}

	if len(res.Published) != 1 || res.Published[0].Name != "download.png" {
		t.Fatalf("unexpected published: %+v", res.Published)
	}
	if list, _ := store.List(context.Background()); len(list) != 1 {
		t.Fatalf("expected one stored artifact, got %d", len(list))
	}

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Objects != 3 || snap.SelectedKind != domain.KindText {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	tb := snap.Toolbar
	if tb.FontSize != 30 || tb.Fill != "#00FF00" || tb.FontWeight != domain.WeightBold || !tb.Underline || tb.FontStyle == domain.StyleItalic {
		t.Fatalf("style not applied: %+v", tb)
	}
}

func TestRunSelectDeleteAndClear(t *testing.T) {
	r, s, _ := newRunner(t, t.TempDir())
	ctx := context.Background()
	sc := mustParse(t, `{"version":1,"actions":[
	  {"op":"text","text":"one"},
	  {"op":"text","text":"two"},
	  {"op":"select","index":0},
	  {"op":"delete"},
	  {"op":"color","color":"#000000"}
	]}`)
	if _, err := r.Run(ctx, sc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	objs, _ := s.Objects(ctx)
	if len(objs) != 1 || objs[0].Text != "two" {
		t.Fatalf("expected only 'two' left, got %+v", objs)
	}

	clearAll := mustParse(t, `{"version":1,"actions":[{"op":"clear"}]}`)
	if _, err := r.Run(ctx, clearAll); err != nil {
		t.Fatalf("Run clear: %v", err)
	}
	if objs, _ := s.Objects(ctx); len(objs) != 0 {
		t.Fatalf("expected empty canvas, got %d", len(objs))
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	r, _, _ := newRunner(t, t.TempDir())
	sc := mustParse(t, `{"version":1,"actions":[
	  {"op":"text","text":"a"},
	  {"op":"select","index":5},
	  {"op":"text","text":"b"}
	]}`)
	res, err := r.Run(context.Background(), sc)
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.Actions != 1 {
		t.Fatalf("expected 1 completed action, got %d", res.Actions)
	}

	miss := mustParse(t, `{"version":1,"actions":[{"op":"select","x":-50,"y":-50}]}`)
	if _, err := r.Run(context.Background(), miss); err == nil {
		t.Fatalf("expected no-selection error")
	}

	nofile := mustParse(t, `{"version":1,"actions":[{"op":"logo","file":"missing.png"}]}`)
	if _, err := r.Run(context.Background(), nofile); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestRunCancelledCropKeepsCanvas(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "shirt.png"), 30, 30, color.RGBA{G: 200, A: 255})
	r, s, _ := newRunner(t, dir)
	sc := mustParse(t, `{"version":1,"actions":[
	  {"op":"text","text":"keep"},
	  {"op":"background","file":"shirt.png","zoom":2,"cancel":true}
	]}`)
	if _, err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	objs, _ := s.Objects(context.Background())
	if len(objs) != 1 || objs[0].Kind != domain.KindText {
		t.Fatalf("cancelled crop must not touch the canvas: %+v", objs)
	}
	cs, _ := s.CropState(context.Background())
	if cs.Active {
		t.Fatalf("crop should be closed after cancel")
	}
}
