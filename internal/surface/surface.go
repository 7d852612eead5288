/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package surface defines the capabilities the design session needs from a
// retained 2D drawing surface and ships a software implementation backed by
// github.com/gogpu/gg.
//
// A surface mirrors the document's ordered object list, owns the single
// active (selected) object and reports selection changes to subscribers.
// Listeners run synchronously on the goroutine that caused the change.
package surface

import (
	"errors"

	"gotshirtdesigner/internal/domain"
)

// Format is an output encoding for RenderToBytes.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

var (
	ErrNotInitialized = errors.New("surface not initialized")
	ErrNotSelectable  = errors.New("object is not selectable")
	ErrUnknownObject  = errors.New("object is not on the surface")
	ErrFormat         = errors.New("unsupported output format")
)

// Listener receives the newly active object; nil for a cleared selection.
type Listener func(*domain.Object)

// Unsubscribe releases a subscription. Calling it twice is a no-op.
type Unsubscribe func()

// Surface is the narrow rendering contract consumed by the session.
type Surface interface {
	Create(w, h int, background string) error
	Resize(w, h int) error
	Size() (w, h int)
	Dispose()
	Initialized() bool

	AddObject(o *domain.Object) error
	RemoveObject(o *domain.Object) error
	ClearAll()
	Objects() []*domain.Object
	SetBackgroundColor(hex string) error
	BackgroundColor() string

	SetActiveObject(o *domain.Object) error
	DiscardActiveObject()
	ActiveObject() *domain.Object
	ObjectAt(x, y float64) *domain.Object

	RenderNow() error
	RenderToBytes(format Format, multiplier float64) ([]byte, error)

	OnSelectionCreated(fn Listener) Unsubscribe
	OnSelectionUpdated(fn Listener) Unsubscribe
	OnSelectionCleared(fn Listener) Unsubscribe
}
