/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"gotshirtdesigner/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb      PresetName = "web"
	PresetStandard PresetName = "standard"
	PresetPrint    PresetName = "print"
)

// Preset pairs a quality tier with its outputs.
type Preset struct {
	Name       PresetName
	Multiplier int
	PDF        bool
}

var presets = []Preset{
	{Name: PresetWeb, Multiplier: 1},
	{Name: PresetStandard, Multiplier: 2},
	{Name: PresetPrint, Multiplier: 3, PDF: true},
}

// Presets lists the quality tiers in ascending order.
func Presets() []Preset { return append([]Preset(nil), presets...) }

// LookupPreset finds a preset by name, case-insensitively.
func LookupPreset(name string) (Preset, error) {
	n := PresetName(strings.ToLower(strings.TrimSpace(name)))
	for _, p := range presets {
		if p.Name == n {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown export preset %q", name)
}

// BatchOptions controls a multi-preset export to disk.
//
// Path semantics:
//   - OutDir empty means "exports"; relative OutDir is resolved under Root.
//   - Each preset writes into <OutDir>/<preset>/.
//   - FileName defaults to tshirt_design.png; the PDF shares its stem.
type BatchOptions struct {
	Presets  []PresetName // empty means print only
	Root     string
	OutDir   string
	FileName string
}

// Output describes the files produced for one preset.
type Output struct {
	Preset  Preset
	PNGPath string
	PDFPath string
	Bytes   int
}

// ResolveOutDir applies the BatchOptions path rules.
func ResolveOutDir(root, outDir string) string {
	if outDir == "" {
		outDir = "exports"
	}
	if filepath.IsAbs(outDir) {
		return outDir
	}
	return filepath.Join(root, outDir)
}

// BatchExport runs ExportPNG once per preset and writes the files.
func BatchExport(e *Engine, doc *domain.Document, opt BatchOptions) ([]Output, error) {
	names := opt.Presets
	if len(names) == 0 {
		names = []PresetName{PresetPrint}
	}
	name := opt.FileName
	if name == "" {
		name = DefaultFileName
	}
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	base := ResolveOutDir(opt.Root, opt.OutDir)

	var outs []Output
	for _, n := range names {
		p, err := LookupPreset(string(n))
		if err != nil {
			return outs, err
		}
		data, err := e.ExportPNG(doc, p.Multiplier)
		if err != nil {
			return outs, fmt.Errorf("%s preset: %w", p.Name, err)
		}
		dir := filepath.Join(base, string(p.Name))
		out := Output{Preset: p, PNGPath: filepath.Join(dir, name), Bytes: len(data)}
		if err := WriteFile(out.PNGPath, data); err != nil {
			return outs, err
		}
		if p.PDF {
			var buf bytes.Buffer
			opts := PDFOptions{Title: strings.TrimSuffix(name, filepath.Ext(name))}
			if err := WritePDF(&buf, data, doc.Width*p.Multiplier, doc.Height*p.Multiplier, opts); err != nil {
				return outs, err
			}
			out.PDFPath = strings.TrimSuffix(out.PNGPath, filepath.Ext(out.PNGPath)) + ".pdf"
			if err := WriteFile(out.PDFPath, buf.Bytes()); err != nil {
				return outs, err
			}
		}
		outs = append(outs, out)
	}
	return outs, nil
}
