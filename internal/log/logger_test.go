/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", last, err)
	}
	return m
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "designer.json")
	l := New(Options{Level: "info", File: path, MaxSizeMB: 1, Writer: &console})

	l = WithOperation(WithSession(l.With(slog.String(KeyComponent, "export")), "01J0S"), "publish")
	l.Debug("below level")
	l.Info("bundle written", slog.Int("files", 3))

	out := console.String()
	if strings.Contains(out, "below level") {
		t.Fatalf("debug record leaked to console: %q", out)
	}
	if !strings.Contains(out, "INF export@01J0S bundle written") || !strings.Contains(out, "op=publish") {
		t.Fatalf("console line = %q", out)
	}

	m := lastJSONLine(t, path)
	want := map[string]any{
		"msg":        "bundle written",
		"app":        "gotshirtdesigner",
		KeyComponent: "export",
		KeySession:   "01J0S",
		KeyOperation: "publish",
		"files":      float64(3),
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("file record %s = %v, want %v (record %v)", k, m[k], v, m)
		}
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("file record lacks ver: %v", m)
	}
}

func TestFileRecordCarriesContextSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "designer.json")
	l := New(Options{Level: "debug", File: path, Writer: &bytes.Buffer{}})

	l.DebugContext(ContextWithSession(context.Background(), "01J0T"), "crop applied")
	if m := lastJSONLine(t, path); m[KeySession] != "01J0T" || m["level"] != "DEBUG" {
		t.Fatalf("file record = %v", m)
	}
}
