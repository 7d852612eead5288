/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package toolbar mirrors the style of the selected text layer and writes
// edits back to it.
package toolbar

import (
	"errors"
	"fmt"
	"log/slog"

	"gotshirtdesigner/internal/domain"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/selection"
	"gotshirtdesigner/internal/surface"
)

var (
	ErrHidden      = errors.New("toolbar hidden: no text layer selected")
	ErrInvalidSize = errors.New("font size must be positive")
	ErrFamily      = errors.New("unknown font family")
	ErrAlign       = errors.New("unknown text alignment")
)

// State is the read-only view of the toolbar. Zero value means hidden.
type State struct {
	Visible    bool              `json:"visible"`
	ObjectID   string            `json:"objectId,omitempty"`
	FontSize   int               `json:"fontSize,omitempty"`
	FontFamily domain.FontFamily `json:"fontFamily,omitempty"`
	Fill       string            `json:"fill,omitempty"`
	FontWeight domain.Weight     `json:"fontWeight,omitempty"`
	FontStyle  domain.FontStyle  `json:"fontStyle,omitempty"`
	Underline  bool              `json:"underline,omitempty"`
	TextAlign  domain.Align      `json:"textAlign,omitempty"`
}

// Options are the values offered by the size and family pickers.
type Options struct {
	FontSizes []int
	Families  []domain.FontFamily
}

type Toolbar struct {
	surf    surface.Surface
	sel     *selection.Controller
	target  *domain.Object
	state   State
	release func()
	log     *slog.Logger
}

// New creates a hidden toolbar following sel.
func New(s surface.Surface, sel *selection.Controller) *Toolbar {
	t := &Toolbar{surf: s, sel: sel, log: applog.WithComponent("toolbar")}
	t.release = sel.Observe(t.sync)
	t.sync(sel.Selected())
	return t
}

// Close stops following the selection.
func (t *Toolbar) Close() {
	if t.release != nil {
		t.release()
		t.release = nil
	}
}

func (t *Toolbar) sync(o *domain.Object) {
	if !o.IsText() {
		t.target = nil
		t.state = State{}
		return
	}
	t.target = o
	t.state = State{
		Visible:    true,
		ObjectID:   o.ID,
		FontSize:   o.FontSize,
		FontFamily: o.FontFamily,
		Fill:       o.Fill,
		FontWeight: o.FontWeight,
		FontStyle:  o.FontStyle,
		Underline:  o.Underline,
		TextAlign:  o.TextAlign,
	}
}

func (t *Toolbar) State() State { return t.state }

func (t *Toolbar) Visible() bool { return t.state.Visible }

// Options returns copies of the picker lists.
func (t *Toolbar) Options() Options {
	return Options{
		FontSizes: append([]int(nil), domain.FontSizes...),
		Families:  append([]domain.FontFamily(nil), domain.Families...),
	}
}

// edit applies fn to the target, refreshes the mirror and re-renders.
func (t *Toolbar) edit(field string, fn func(o *domain.Object)) error {
	if t.target == nil {
		return ErrHidden
	}
	fn(t.target)
	t.sync(t.target)
	t.log.Debug("style changed", slog.String("field", field), slog.String("object", t.target.ID))
	if err := t.surf.RenderNow(); err != nil {
		return fmt.Errorf("render after %s: %w", field, err)
	}
	return nil
}

func (t *Toolbar) SetFontSize(pt int) error {
	if pt <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, pt)
	}
	return t.edit("fontSize", func(o *domain.Object) { o.FontSize = pt })
}

func (t *Toolbar) SetFontFamily(f domain.FontFamily) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrFamily, f)
	}
	return t.edit("fontFamily", func(o *domain.Object) { o.FontFamily = f })
}

// SetFill stores the colour as given once it parses.
func (t *Toolbar) SetFill(c string) error {
	if _, err := domain.ParseColor(c); err != nil {
		return err
	}
	return t.edit("fill", func(o *domain.Object) { o.Fill = c })
}

func (t *Toolbar) SetTextAlign(a domain.Align) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %q", ErrAlign, a)
	}
	return t.edit("textAlign", func(o *domain.Object) { o.TextAlign = a })
}

// SetText replaces the content of the selected text layer.
func (t *Toolbar) SetText(s string) error {
	return t.edit("text", func(o *domain.Object) { o.Text = s })
}

func (t *Toolbar) ToggleBold() error {
	return t.edit("fontWeight", func(o *domain.Object) {
		if o.FontWeight == domain.WeightBold {
			o.FontWeight = domain.WeightNormal
		} else {
			o.FontWeight = domain.WeightBold
		}
	})
}

func (t *Toolbar) ToggleItalic() error {
	return t.edit("fontStyle", func(o *domain.Object) {
		if o.FontStyle == domain.StyleItalic {
			o.FontStyle = domain.StyleNormal
		} else {
			o.FontStyle = domain.StyleItalic
		}
	})
}

func (t *Toolbar) ToggleUnderline() error {
	return t.edit("underline", func(o *domain.Object) { o.Underline = !o.Underline })
}

// Delete runs the same removal command as the Delete key.
func (t *Toolbar) Delete() (bool, error) {
	if t.target == nil {
		return false, ErrHidden
	}
	return t.sel.Delete()
}
