/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package selection tracks the single selected design object. State changes
// come only from surface selection events and from the delete command.
package selection

import (
	"fmt"
	"log/slog"

	"gotshirtdesigner/internal/domain"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/surface"
)

// State is Idle or Selected.
type State int

const (
	Idle State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "idle"
}

// KeyDelete is the key name that triggers deletion.
const KeyDelete = "Delete"

// Observer is notified with the new selection (nil for Idle).
type Observer func(*domain.Object)

type Controller struct {
	surf      surface.Surface
	doc       *domain.Document
	selected  *domain.Object
	observers map[int]Observer
	order     []int
	nextID    int
	unsubs    []surface.Unsubscribe
	log       *slog.Logger
}

// New creates a controller in Idle. Call Attach to start following the surface.
func New(s surface.Surface, doc *domain.Document) *Controller {
	return &Controller{
		surf:      s,
		doc:       doc,
		observers: make(map[int]Observer),
		log:       applog.WithComponent("selection"),
	}
}

// Attach subscribes to the surface selection events.
func (c *Controller) Attach() {
	if len(c.unsubs) > 0 {
		return
	}
	c.unsubs = append(c.unsubs,
		c.surf.OnSelectionCreated(c.set),
		c.surf.OnSelectionUpdated(c.set),
		c.surf.OnSelectionCleared(func(*domain.Object) { c.set(nil) }),
	)
}

// Detach releases every surface subscription.
func (c *Controller) Detach() {
	for _, un := range c.unsubs {
		un()
	}
	c.unsubs = nil
}

func (c *Controller) set(o *domain.Object) {
	if c.selected == o {
		return
	}
	c.selected = o
	if o != nil {
		c.log.Debug("selected", slog.String("object", o.String()))
	} else {
		c.log.Debug("selection cleared")
	}
	for _, id := range c.order {
		if fn, ok := c.observers[id]; ok {
			fn(o)
		}
	}
}

// Observe registers fn for selection changes and returns its release func.
func (c *Controller) Observe(fn Observer) func() {
	c.nextID++
	id := c.nextID
	c.observers[id] = fn
	c.order = append(c.order, id)
	return func() {
		delete(c.observers, id)
		for i, x := range c.order {
			if x == id {
				c.order = append(c.order[:i:i], c.order[i+1:]...)
				break
			}
		}
	}
}

func (c *Controller) State() State {
	if c.selected != nil {
		return Selected
	}
	return Idle
}

// Selected returns the selected object or nil.
func (c *Controller) Selected() *domain.Object { return c.selected }

// Select asks the surface to activate o; the resulting event updates the state.
func (c *Controller) Select(o *domain.Object) error { return c.surf.SetActiveObject(o) }

// Pick selects the topmost selectable object at (x, y) or clears the selection.
func (c *Controller) Pick(x, y float64) *domain.Object {
	o := c.surf.ObjectAt(x, y)
	if o == nil {
		c.surf.DiscardActiveObject()
		return nil
	}
	if err := c.surf.SetActiveObject(o); err != nil {
		return nil
	}
	return o
}

// Delete removes the selected object from surface and document and returns
// to Idle. It reports whether an object was removed.
func (c *Controller) Delete() (bool, error) {
	o := c.selected
	if o == nil {
		return false, nil
	}
	if err := c.surf.RemoveObject(o); err != nil {
		return false, fmt.Errorf("delete %s: %w", o.ID, err)
	}
	c.doc.Remove(o)
	c.surf.DiscardActiveObject()
	c.set(nil)
	c.log.Info("object deleted", slog.String("object", o.String()))
	if err := c.surf.RenderNow(); err != nil {
		return true, fmt.Errorf("render after delete: %w", err)
	}
	return true, nil
}

// HandleKey runs Delete for the Delete key unless a text field has focus.
func (c *Controller) HandleKey(key string, focusInTextField bool) (bool, error) {
	if key != KeyDelete || focusInTextField || c.selected == nil {
		return false, nil
	}
	return c.Delete()
}
