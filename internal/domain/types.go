/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the design object model: a background garment image,
// logo image layers and editable text layers placed on a fixed-size surface.
// Positions are top-left anchored in document-logical units.

import (
	"fmt"
	"image"

	"github.com/oklog/ulid/v2"
	"gotshirtdesigner/internal/vector"
)

// Kind discriminates the object variants.
type Kind string

const (
	KindBackground Kind = "background"
	KindImage      Kind = "image"
	KindText       Kind = "text"
)

// FontFamily is one of the families offered by the style toolbar.
type FontFamily string

const (
	FamilyArial         FontFamily = "Arial"
	FamilyCourierNew    FontFamily = "Courier New"
	FamilyGeorgia       FontFamily = "Georgia"
	FamilyTimesNewRoman FontFamily = "Times New Roman"
	FamilyVerdana       FontFamily = "Verdana"
)

// Families lists the selectable font families in toolbar order.
var Families = []FontFamily{FamilyArial, FamilyCourierNew, FamilyGeorgia, FamilyTimesNewRoman, FamilyVerdana}

// FontSizes lists the toolbar's suggested sizes in pt.
var FontSizes = []int{12, 14, 16, 18, 24, 32, 48, 64}

// Valid reports whether f is a known family.
func (f FontFamily) Valid() bool {
	for _, k := range Families {
		if k == f {
			return true
		}
	}
	return false
}

// Weight is stored as the literal strings "normal" or "bold".
type Weight string

const (
	WeightNormal Weight = "normal"
	WeightBold   Weight = "bold"
)

// FontStyle is stored as the literal strings "normal" or "italic".
type FontStyle string

const (
	StyleNormal FontStyle = "normal"
	StyleItalic FontStyle = "italic"
)

// Align is the horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

func (a Align) Valid() bool { return a == AlignLeft || a == AlignCenter || a == AlignRight }

// Text layer defaults applied by AddText.
const (
	DefaultFontSize   = 12
	DefaultFill       = "#000000"
	DefaultFontFamily = FamilyArial
	DefaultTextAlign  = AlignCenter
)

// Geometry is the transform part of an object that export rescales.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
}

// Object is a single design layer. Bitmap fields are used by Background and
// ImageLayer; text fields by TextLayer.
type Object struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	ScaleX      float64 `json:"scaleX"`
	ScaleY      float64 `json:"scaleY"`
	Selectable  bool    `json:"selectable"`
	HasControls bool    `json:"hasControls"`

	Bitmap   image.Image `json:"-"`
	NaturalW float64     `json:"naturalWidth"`
	NaturalH float64     `json:"naturalHeight"`

	Text       string     `json:"text,omitempty"`
	FontSize   int        `json:"fontSize,omitempty"`
	FontFamily FontFamily `json:"fontFamily,omitempty"`
	Fill       string     `json:"fill,omitempty"`
	FontWeight Weight     `json:"fontWeight,omitempty"`
	FontStyle  FontStyle  `json:"fontStyle,omitempty"`
	Underline  bool       `json:"underline,omitempty"`
	TextAlign  Align      `json:"textAlign,omitempty"`

	bounds vector.Rect
}

// NewID returns a fresh sortable object id.
func NewID() string { return ulid.Make().String() }

// NewBackground wraps an already cropped bitmap as the non-selectable background.
func NewBackground(bmp image.Image, scale float64) *Object {
	b := bmp.Bounds()
	o := &Object{
		ID:       NewID(),
		Kind:     KindBackground,
		ScaleX:   scale,
		ScaleY:   scale,
		Bitmap:   bmp,
		NaturalW: float64(b.Dx()),
		NaturalH: float64(b.Dy()),
	}
	o.SetCoords()
	return o
}

// NewImageLayer creates a selectable logo layer at (x, y) with uniform scale.
func NewImageLayer(bmp image.Image, x, y, scale float64) *Object {
	b := bmp.Bounds()
	o := &Object{
		ID:          NewID(),
		Kind:        KindImage,
		X:           x,
		Y:           y,
		ScaleX:      scale,
		ScaleY:      scale,
		Selectable:  true,
		HasControls: true,
		Bitmap:      bmp,
		NaturalW:    float64(b.Dx()),
		NaturalH:    float64(b.Dy()),
	}
	o.SetCoords()
	return o
}

// NewTextLayer creates a text layer with the default style. Its natural size
// is zero until measured.
func NewTextLayer(text string) *Object {
	return &Object{
		ID:          NewID(),
		Kind:        KindText,
		ScaleX:      1,
		ScaleY:      1,
		Selectable:  true,
		HasControls: true,
		Text:        text,
		FontSize:    DefaultFontSize,
		FontFamily:  DefaultFontFamily,
		Fill:        DefaultFill,
		FontWeight:  WeightNormal,
		FontStyle:   StyleNormal,
		TextAlign:   DefaultTextAlign,
	}
}

func (o *Object) IsText() bool { return o != nil && o.Kind == KindText }

// Geometry returns the current transform values.
func (o *Object) Geometry() Geometry {
	return Geometry{X: o.X, Y: o.Y, ScaleX: o.ScaleX, ScaleY: o.ScaleY}
}

// SetGeometry replaces the transform values and recomputes cached bounds.
func (o *Object) SetGeometry(g Geometry) {
	o.X, o.Y, o.ScaleX, o.ScaleY = g.X, g.Y, g.ScaleX, g.ScaleY
	o.SetCoords()
}

// Frame returns the placed box of the object.
func (o *Object) Frame() vector.Frame {
	return vector.PlacedFrame(o.NaturalW, o.NaturalH, o.X, o.Y, o.ScaleX, o.ScaleY)
}

// SetCoords recomputes the cached bounding box from geometry and natural size.
func (o *Object) SetCoords() { o.bounds = o.Frame().Bounds() }

// Bounds returns the cached bounding box as of the last SetCoords.
func (o *Object) Bounds() vector.Rect { return o.bounds }

// Hit reports whether p lies on the object.
func (o *Object) Hit(p vector.Pt) bool { return o.Frame().Hit(p) }

// SetNaturalSize updates the unscaled extent (used after text measurement).
func (o *Object) SetNaturalSize(w, h float64) {
	o.NaturalW, o.NaturalH = w, h
	o.SetCoords()
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.Kind == KindText {
		return fmt.Sprintf("%s[%s %q]", o.Kind, o.ID, o.Text)
	}
	return fmt.Sprintf("%s[%s %gx%g]", o.Kind, o.ID, o.NaturalW, o.NaturalH)
}
