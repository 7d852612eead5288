/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
)

// Document is the ordered object list of one design. Later objects draw on top.
// At most one background exists and it sits at index 0.
type Document struct {
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Objects []*Object `json:"objects"`
}

var ErrInvalidSize = errors.New("document size must be positive")

// NewDocument returns an empty document of the given logical size.
func NewDocument(w, h int) (*Document, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return &Document{Width: w, Height: h}, nil
}

func (d *Document) Len() int { return len(d.Objects) }

// Append adds o on top of the stack.
func (d *Document) Append(o *Object) { d.Objects = append(d.Objects, o) }

// IndexOf returns the z-index of o or -1.
func (d *Document) IndexOf(o *Object) int {
	for i, x := range d.Objects {
		if x == o {
			return i
		}
	}
	return -1
}

// Find returns the object with the given id.
func (d *Document) Find(id string) *Object {
	for _, x := range d.Objects {
		if x.ID == id {
			return x
		}
	}
	return nil
}

// Remove deletes o and reports whether it was present.
func (d *Document) Remove(o *Object) bool {
	i := d.IndexOf(o)
	if i < 0 {
		return false
	}
	d.Objects = append(d.Objects[:i], d.Objects[i+1:]...)
	return true
}

// ReplaceAll drops every object and installs only o.
func (d *Document) ReplaceAll(o *Object) { d.Objects = []*Object{o} }

func (d *Document) Clear() { d.Objects = nil }

// Background returns the background object, if any.
func (d *Document) Background() *Object {
	if len(d.Objects) > 0 && d.Objects[0].Kind == KindBackground {
		return d.Objects[0]
	}
	return nil
}

// Check verifies the background placement rule.
func (d *Document) Check() error {
	for i, o := range d.Objects {
		if o.Kind != KindBackground {
			continue
		}
		if i != 0 {
			return fmt.Errorf("background %s at index %d", o.ID, i)
		}
		if o.Selectable {
			return fmt.Errorf("background %s is selectable", o.ID)
		}
	}
	return nil
}

// Summary is a compact description used in logs and crash reports.
func (d *Document) Summary() string {
	if d == nil {
		return "<no document>"
	}
	var bg, img, txt int
	for _, o := range d.Objects {
		switch o.Kind {
		case KindBackground:
			bg++
		case KindImage:
			img++
		case KindText:
			txt++
		}
	}
	return fmt.Sprintf("%dx%d objects=%d background=%d images=%d texts=%d", d.Width, d.Height, len(d.Objects), bg, img, txt)
}
