/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"fmt"

	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/vector"
)

type eventKind int

const (
	evCreated eventKind = iota
	evUpdated
	evCleared
)

type subscription struct {
	id int
	fn Listener
}

// scene is the renderer-independent part of a surface: the mirrored object
// list, the active object and the selection listeners.
type scene struct {
	objects  []*domain.Object
	active   *domain.Object
	bg       string
	nextSub  int
	handlers [3][]subscription
}

func (s *scene) subscribe(k eventKind, fn Listener) Unsubscribe {
	s.nextSub++
	id := s.nextSub
	s.handlers[k] = append(s.handlers[k], subscription{id: id, fn: fn})
	return func() {
		hs := s.handlers[k]
		for i, h := range hs {
			if h.id == id {
				s.handlers[k] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

func (s *scene) emit(k eventKind, o *domain.Object) {
	// copy so listeners may unsubscribe while being notified
	hs := append([]subscription(nil), s.handlers[k]...)
	for _, h := range hs {
		h.fn(o)
	}
}

func (s *scene) OnSelectionCreated(fn Listener) Unsubscribe { return s.subscribe(evCreated, fn) }
func (s *scene) OnSelectionUpdated(fn Listener) Unsubscribe { return s.subscribe(evUpdated, fn) }
func (s *scene) OnSelectionCleared(fn Listener) Unsubscribe { return s.subscribe(evCleared, fn) }

// listenerCount is used by tests to assert that subscriptions were released.
func (s *scene) listenerCount() int {
	return len(s.handlers[evCreated]) + len(s.handlers[evUpdated]) + len(s.handlers[evCleared])
}

func (s *scene) indexOf(o *domain.Object) int {
	for i, x := range s.objects {
		if x == o {
			return i
		}
	}
	return -1
}

func (s *scene) add(o *domain.Object) error {
	if o == nil {
		return fmt.Errorf("add nil object")
	}
	if s.indexOf(o) >= 0 {
		return fmt.Errorf("object %s already on surface", o.ID)
	}
	s.objects = append(s.objects, o)
	return nil
}

// remove drops o; removing the active object clears the selection.
func (s *scene) remove(o *domain.Object) error {
	i := s.indexOf(o)
	if i < 0 {
		return ErrUnknownObject
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	if s.active == o {
		s.active = nil
		s.emit(evCleared, nil)
	}
	return nil
}

func (s *scene) clearAll() {
	s.objects = nil
	if s.active != nil {
		s.active = nil
		s.emit(evCleared, nil)
	}
}

func (s *scene) Objects() []*domain.Object { return append([]*domain.Object(nil), s.objects...) }

func (s *scene) setActive(o *domain.Object) error {
	if s.indexOf(o) < 0 {
		return ErrUnknownObject
	}
	if !o.Selectable {
		return fmt.Errorf("%w: %s", ErrNotSelectable, o.ID)
	}
	prev := s.active
	if prev == o {
		return nil
	}
	s.active = o
	if prev == nil {
		s.emit(evCreated, o)
	} else {
		s.emit(evUpdated, o)
	}
	return nil
}

func (s *scene) DiscardActiveObject() {
	if s.active == nil {
		return
	}
	s.active = nil
	s.emit(evCleared, nil)
}

func (s *scene) ActiveObject() *domain.Object { return s.active }

// ObjectAt returns the topmost selectable object under (x, y).
func (s *scene) ObjectAt(x, y float64) *domain.Object {
	p := vector.Pt{X: x, Y: y}
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.Selectable && o.Hit(p) {
			return o
		}
	}
	return nil
}

func (s *scene) BackgroundColor() string { return s.bg }
