/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"gotshirtdesigner/internal/domain"
)

// FontLibrary stores loaded OpenType fonts mapped by family/weight/italic.
// It keeps the raw TTF bytes as well so renderers that parse fonts themselves
// can share the same files.

type FontLibrary struct {
	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
	data  map[fontKey][]byte
	faces map[faceKey]font.Face
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

type faceKey struct {
	fontKey
	size float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{
		fonts: make(map[fontKey]*opentype.Font),
		data:  make(map[fontKey][]byte),
		faces: make(map[faceKey]font.Face),
	}
}

var (
	defaultLibOnce sync.Once
	defaultLib     *FontLibrary
)

// Default returns a shared library with every toolbar family bound to the
// embedded Go fonts: Courier New maps to Go Mono, the rest to Go sans.
func Default() *FontLibrary {
	defaultLibOnce.Do(func() {
		lib := NewFontLibrary()
		sans := [4][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF}
		mono := [4][]byte{gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF}
		for _, fam := range domain.Families {
			set := sans
			if fam == domain.FamilyCourierNew {
				set = mono
			}
			for i, ttf := range set {
				// embedded fonts always parse
				_ = lib.LoadTTFBytes(string(fam), i&1 == 1, i&2 == 2, ttf)
			}
		}
		defaultLib = lib
	})
	return defaultLib
}

// LoadTTF loads a font file into the library under the given family/bold/italic.
func (fl *FontLibrary) LoadTTF(family string, bold, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadTTFBytes(family, bold, italic, data)
}

// LoadTTFBytes parses data and registers it.
func (fl *FontLibrary) LoadTTFBytes(family string, bold, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	k := fontKey{family: family, bold: bold, italic: italic}
	fl.fonts[k] = f
	fl.data[k] = data
	for fk := range fl.faces {
		if fk.fontKey == k {
			delete(fl.faces, fk)
		}
	}
	return nil
}

// resolveKey finds the best registered key: exact, then same family regular,
// then any variant of the family, then the Arial fallback.
func (fl *FontLibrary) resolveKey(spec FontSpec) (fontKey, bool) {
	want := fontKey{family: spec.Family, bold: spec.Bold(), italic: spec.Italic}
	if _, ok := fl.fonts[want]; ok {
		return want, true
	}
	reg := fontKey{family: spec.Family}
	if _, ok := fl.fonts[reg]; ok {
		return reg, true
	}
	for k := range fl.fonts {
		if k.family == spec.Family {
			return k, true
		}
	}
	if spec.Family != string(domain.FamilyArial) {
		return fl.resolveKey(FontSpec{Family: string(domain.FamilyArial), Weight: spec.Weight, Italic: spec.Italic})
	}
	return fontKey{}, false
}

// TTF returns the raw font file resolved for spec.
func (fl *FontLibrary) TTF(spec FontSpec) ([]byte, bool) {
	if fl == nil {
		return nil, false
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	k, ok := fl.resolveKey(spec)
	if !ok {
		return nil, false
	}
	return fl.data[k], true
}

// face returns a cached face for spec at dpi.
func (fl *FontLibrary) face(spec FontSpec, dpi float64) (font.Face, bool) {
	if fl == nil {
		return nil, false
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	k, ok := fl.resolveKey(spec)
	if !ok {
		return nil, false
	}
	fk := faceKey{fontKey: k, size: float64(spec.SizePt) * dpi / 72}
	if f, ok := fl.faces[fk]; ok {
		return f, true
	}
	f, err := opentype.NewFace(fl.fonts[k], &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingNone})
	if err != nil {
		return nil, false
	}
	fl.faces[fk] = f
	return f, true
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.

type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	// Defaults
	if spec.SizePt <= 0 {
		spec.SizePt = domain.DefaultFontSize
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if face, ok := p.Lib.face(spec, dpi); ok {
		return face, metricsOf(face)
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

func metricsOf(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent) / 64,
		Descent: float64(m.Descent) / 64,
		LineGap: float64(m.Height-m.Ascent-m.Descent) / 64,
	}
}
