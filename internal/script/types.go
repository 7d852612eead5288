/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "fmt"

// Script is a headless design session: a canvas followed by host actions
// executed in order.
type Script struct {
	Version int      `json:"version"`
	Canvas  Canvas   `json:"canvas"`
	Actions []Action `json:"actions"`
}

// Canvas overrides the session defaults when set.
type Canvas struct {
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Background string `json:"background,omitempty"`
}

// Op names one host action.
type Op string

const (
	OpBackground Op = "background"
	OpLogo       Op = "logo"
	OpText       Op = "text"
	OpStyle      Op = "style"
	OpSelect     Op = "select"
	OpDelete     Op = "delete"
	OpClear      Op = "clear"
	OpColor      Op = "color"
	OpCrop       Op = "crop"
	OpExport     Op = "export"
)

// Rect is a crop rectangle in source pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Action is one step. Which fields apply depends on Op:
//
//	background: File, optional Rect and Zoom, Cancel leaves the crop open
//	logo:       File
//	text:       Text
//	style:      FontSize, FontFamily, Fill, Bold, Italic, Underline, Align, Text
//	select:     Index, or X and Y
//	color:      Color
//	crop:       Rect and Zoom on the open crop, then apply unless Cancel
//	export:     one of File, Presets, Bundle or Publish
type Action struct {
	Op Op `json:"op"`

	File string `json:"file,omitempty"`
	Text string `json:"text,omitempty"`

	Rect   *Rect    `json:"rect,omitempty"`
	Zoom   *float64 `json:"zoom,omitempty"`
	Cancel bool     `json:"cancel,omitempty"`

	FontSize   int    `json:"fontSize,omitempty"`
	FontFamily string `json:"fontFamily,omitempty"`
	Fill       string `json:"fill,omitempty"`
	Bold       *bool  `json:"bold,omitempty"`
	Italic     *bool  `json:"italic,omitempty"`
	Underline  *bool  `json:"underline,omitempty"`
	Align      string `json:"align,omitempty"`

	Index *int     `json:"index,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`

	Color string `json:"color,omitempty"`

	Multiplier  int      `json:"multiplier,omitempty"`
	Presets     []string `json:"presets,omitempty"`
	Bundle      string   `json:"bundle,omitempty"`
	Multipliers []int    `json:"multipliers,omitempty"`
	Publish     bool     `json:"publish,omitempty"`
	Name        string   `json:"name,omitempty"`
}

// Error represents a validation error with position context.
// Action is the 1-based action index, 0 for script-level problems.
type Error struct {
	Action  int
	Field   string
	Message string
}

func (e Error) Error() string {
	if e.Action > 0 {
		return fmt.Sprintf("action %d: %s: %s", e.Action, e.Field, e.Message)
	}
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
