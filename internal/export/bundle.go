/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/version"
)

// ManifestName is the text file listing the bundle entries.
const ManifestName = "manifest.txt"

// Bundle renders doc once per multiplier and writes all PNGs plus a manifest
// into a ZIP stream. Entries are named design-x<m>.png.
func Bundle(e *Engine, doc *domain.Document, multipliers []int, w io.Writer) error {
	if len(multipliers) == 0 {
		multipliers = []int{1, 2, 3}
	}
	zw := zip.NewWriter(w)
	var lines []string
	for _, m := range multipliers {
		data, err := e.ExportPNG(doc, m)
		if err != nil {
			return fmt.Errorf("bundle x%d: %w", m, err)
		}
		name := fmt.Sprintf("design-x%d.png", m)
		if err := addZipFile(zw, name, data); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
		lines = append(lines, fmt.Sprintf("%s\t%dx%d\t%d bytes", name, doc.Width*m, doc.Height*m, len(data)))
	}
	if err := addZipFile(zw, ManifestName, []byte(buildManifest(doc, lines))); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

// WriteBundle writes Bundle output to path.
func WriteBundle(e *Engine, doc *domain.Document, multipliers []int, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	if err := Bundle(e, doc, multipliers, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func buildManifest(doc *domain.Document, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "generator: gotshirtdesigner %s\n", version.Version)
	fmt.Fprintf(&b, "created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "document: %s\n", doc.Summary())
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
