/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a fatal panic into a report file, an emergency PNG of
// the open design and an optional telemetry upload.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/telemetry"
	"gotshirtdesigner/internal/version"
)

// EnvDir overrides the directory crash reports are written to.
const EnvDir = "GTD_CRASH_DIR"

// State is the part of a design session a crash report can capture.
type State interface {
	Summary() string
	EmergencyPNG() ([]byte, error)
}

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

var (
	mu      sync.Mutex
	tracked State
)

// Track registers st as the state captured by Recover(nil). The returned
// func unregisters it.
func Track(st State) func() {
	mu.Lock()
	tracked = st
	mu.Unlock()
	return func() {
		mu.Lock()
		if tracked == st {
			tracked = nil
		}
		mu.Unlock()
	}
}

func current(st State) State {
	if st != nil {
		return st
	}
	mu.Lock()
	defer mu.Unlock()
	return tracked
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report and tries to save the current design as a PNG next to it.
//
// Usage: defer crash.Recover(nil)
func Recover(st State) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		st = current(st)
		reportPath, err := writeReport(st, r, stack)
		if err != nil {
			l.Error("crash report failed", slog.Any("err", err))
		}
		if st != nil {
			if path, err := writeEmergencyPNG(st, reportPath); err != nil {
				l.Error("emergency png failed", slog.Any("err", err))
			} else {
				l.Info("emergency png written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func reportDir() string {
	if d := os.Getenv(EnvDir); d != "" {
		if err := os.MkdirAll(d, 0o755); err == nil {
			return d
		}
	}
	return os.TempDir()
}

func writeReport(st State, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(), fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Go T-Shirt Designer Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if st != nil {
		_, _ = fmt.Fprintf(&buf, "Design: %s\n", st.Summary())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// writeEmergencyPNG stores the design next to the report, crash-<stamp>.png.
func writeEmergencyPNG(st State, reportPath string) (string, error) {
	data, err := st.EmergencyPNG()
	if err != nil {
		return "", err
	}
	path := reportPath[:len(reportPath)-len(filepath.Ext(reportPath))] + ".png"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
