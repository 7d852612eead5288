/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `{
  "version": 1,
  "canvas": {"width": 200, "height": 250, "background": "#000000"},
  "actions": [
    {"op": "background", "file": "shirt.png", "rect": {"x": 0, "y": 0, "w": 10, "h": 10}, "zoom": 1.5},
    {"op": "logo", "file": "logo.png"},
    {"op": "text", "text": "Hello"},
    {"op": "style", "fontSize": 24, "fontFamily": "Georgia", "fill": "#FF0000", "bold": true, "align": "left"},
    {"op": "select", "index": 0},
    {"op": "select", "x": 10, "y": 20},
    {"op": "delete"},
    {"op": "color", "color": "#1E40AF"},
    {"op": "export", "multiplier": 2, "file": "out.png"},
    {"op": "export", "presets": ["web", "print"]},
    {"op": "export", "bundle": "all.zip", "multipliers": [1, 2]},
    {"op": "export", "publish": true, "name": "shirt.png"},
    {"op": "clear"}
  ]
}`

func TestParseValidScript(t *testing.T) {
	s, errs := Parse([]byte(sample))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if s.Canvas.Width != 200 || s.Canvas.Background != "#000000" {
		t.Fatalf("unexpected canvas: %+v", s.Canvas)
	}
	if len(s.Actions) != 13 {
		t.Fatalf("expected 13 actions, got %d", len(s.Actions))
	}
	bg := s.Actions[0]
	if bg.Op != OpBackground || bg.Rect == nil || bg.Rect.W != 10 || bg.Zoom == nil || *bg.Zoom != 1.5 {
		t.Fatalf("unexpected background action: %+v", bg)
	}
	if st := s.Actions[3]; st.Bold == nil || !*st.Bold || st.Italic != nil {
		t.Fatalf("unexpected style toggles: %+v", st)
	}
	if sel := s.Actions[4]; sel.Index == nil || *sel.Index != 0 {
		t.Fatalf("index 0 must survive decoding: %+v", sel)
	}
}

func TestParseReportsActionErrors(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		action int
	}{
		{"unknown op", `{"version":1,"actions":[{"op":"text","text":"a"},{"op":"rotate"}]}`, 2},
		{"logo without file", `{"version":1,"actions":[{"op":"logo"}]}`, 1},
		{"bad colour", `{"version":1,"actions":[{"op":"color","color":"red"}]}`, 1},
		{"zoom out of range", `{"version":1,"actions":[{"op":"crop","zoom":4}]}`, 1},
		{"select without target", `{"version":1,"actions":[{"op":"select"}]}`, 1},
		{"unknown family", `{"version":1,"actions":[{"op":"style","fontFamily":"Comic Sans"}]}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := Parse([]byte(tc.input))
			if len(errs) == 0 {
				t.Fatalf("expected errors")
			}
			found := false
			for _, e := range errs {
				if e.Action == tc.action {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected an error on action %d, got %+v", tc.action, errs)
			}
		})
	}
}

func TestParseRejectsScriptLevelProblems(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"actions":[]}`,
		`{"version":2,"actions":[]}`,
		`{"version":1,"actions":[],"pages":3}`,
	} {
		if _, errs := Parse([]byte(in)); len(errs) == 0 {
			t.Fatalf("expected errors for %s", in)
		}
	}
}

func TestParseFileJoinsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"actions":[{"op":"logo"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ParseFile(path)
	if err == nil || !strings.Contains(err.Error(), "action 1") {
		t.Fatalf("expected action error, got %v", err)
	}
	if len(Schema()) == 0 {
		t.Fatalf("schema must be embedded")
	}
}
