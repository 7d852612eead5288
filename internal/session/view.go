/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"time"

	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/toolbar"
)

// ObjectInfo is a copy of an object's public state.
type ObjectInfo struct {
	ID         string          `json:"id"`
	Kind       domain.Kind     `json:"kind"`
	Geometry   domain.Geometry `json:"geometry"`
	NaturalW   float64         `json:"naturalWidth"`
	NaturalH   float64         `json:"naturalHeight"`
	Selectable bool            `json:"selectable"`
	Text       string          `json:"text,omitempty"`
}

// Snapshot is what observers see after selection or style changes.
type Snapshot struct {
	Selected     string        `json:"selected,omitempty"`
	SelectedKind domain.Kind   `json:"selectedKind,omitempty"`
	Toolbar      toolbar.State `json:"toolbar"`
	Objects      int           `json:"objects"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{Toolbar: s.tb.State(), Objects: s.doc.Len()}
	if o := s.sel.Selected(); o != nil {
		snap.Selected, snap.SelectedKind = o.ID, o.Kind
	}
	return snap
}

func (s *Session) notify() {
	if len(s.watchers) == 0 {
		return
	}
	snap := s.snapshot()
	for i := 1; i <= s.watchSeq; i++ {
		if fn, ok := s.watchers[i]; ok {
			fn(snap)
		}
	}
}

// Watch registers fn for selection and toolbar changes. fn runs on the event
// loop and must not call back into the session.
func (s *Session) Watch(ctx context.Context, fn func(Snapshot)) (func(), error) {
	var id int
	err := s.do(ctx, func() error {
		s.watchSeq++
		id = s.watchSeq
		s.watchers[id] = fn
		return nil
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		_ = s.do(context.Background(), func() error {
			delete(s.watchers, id)
			return nil
		})
	}, nil
}

// Snapshot returns the current selection and toolbar view.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// Objects lists the document in z-order.
func (s *Session) Objects(ctx context.Context) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := s.do(ctx, func() error {
		for _, o := range s.doc.Objects {
			out = append(out, ObjectInfo{
				ID: o.ID, Kind: o.Kind, Geometry: o.Geometry(),
				NaturalW: o.NaturalW, NaturalH: o.NaturalH,
				Selectable: o.Selectable, Text: o.Text,
			})
		}
		return nil
	})
	return out, err
}

// Style runs fn against the toolbar on the event loop and notifies watchers.
func (s *Session) Style(ctx context.Context, fn func(*toolbar.Toolbar) error) error {
	return s.do(ctx, func() error {
		err := fn(s.tb)
		s.notify()
		return err
	})
}

// Summary describes the document for logs and crash reports.
func (s *Session) Summary() string {
	if s.closed.Load() {
		return "session " + s.id + " (closed)"
	}
	ctx, cancel := context.WithTimeout(context.Background(), crashTimeout)
	defer cancel()
	var sum string
	if err := s.do(ctx, func() error {
		sum = s.doc.Summary()
		return nil
	}); err != nil {
		return "session " + s.id + ": " + err.Error()
	}
	return "session " + s.id + ": " + sum
}

// crashTimeout bounds loop access from crash handlers.
const crashTimeout = 2 * time.Second

// EmergencyPNG renders the design at its logical size for crash recovery.
func (s *Session) EmergencyPNG() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), crashTimeout)
	defer cancel()
	var out []byte
	err := s.do(ctx, func() error {
		var err error
		out, err = s.engine.ExportPNG(s.doc, 1)
		return err
	})
	return out, err
}
