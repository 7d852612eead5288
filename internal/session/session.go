/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session orchestrates one design session: the document, the
// rendering surface, selection, the style toolbar, the crop flow and export.
//
// Every mutation runs on a single event loop goroutine owned by the session.
// Public methods post work onto the loop and wait for it. Image decoding runs
// on the caller's goroutine first; its continuation is posted afterwards and
// dropped with ErrStale if the session was closed or the crop request was
// superseded in the meantime.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"gotshirtdesigner/internal/artifact"
	"gotshirtdesigner/internal/crop"
	"gotshirtdesigner/internal/domain"
	"gotshirtdesigner/internal/export"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/selection"
	"gotshirtdesigner/internal/surface"
	"gotshirtdesigner/internal/telemetry"
	"gotshirtdesigner/internal/textlayout"
	"gotshirtdesigner/internal/toolbar"
)

var (
	ErrClosed = errors.New("session closed")
	ErrStale  = errors.New("stale result discarded")
	ErrNoCrop = crop.ErrInvalidSession

	ErrUnknownObject = surface.ErrUnknownObject
)

// Defaults of a session created without explicit size.
const (
	DefaultWidth      = 400
	DefaultHeight     = 500
	DefaultBackground = "#FFFFFF"
)

// afterDecode runs between an off-loop decode and its continuation.
var afterDecode = func() {}

// EventFunc receives anonymous usage events.
type EventFunc func(name string, props map[string]any)

type Options struct {
	Width, Height int
	Background    string
	Surface       surface.Surface // nil means a new gg surface
	Store         artifact.Store  // optional; required by Publish
	Events        EventFunc       // nil means telemetry.Event
}

type Session struct {
	id       string
	doc      *domain.Document
	surf     surface.Surface
	sel      *selection.Controller
	tb       *toolbar.Toolbar
	engine   *export.Engine
	measurer textlayout.Measurer
	store    artifact.Store
	events   EventFunc
	log      *slog.Logger

	crop      *crop.Session
	cropGen   atomic.Uint64 // bumped by cancel and close
	uploadSeq atomic.Uint64
	decoded   atomic.Uint64 // newest background upload that decoded

	watchers map[int]func(Snapshot)
	watchSeq int
	release  []func()

	ops       chan func()
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates the surface, starts the event loop and acquires every event
// subscription. Close releases them.
func New(opt Options) (*Session, error) {
	if opt.Width == 0 && opt.Height == 0 {
		opt.Width, opt.Height = DefaultWidth, DefaultHeight
	}
	if opt.Background == "" {
		opt.Background = DefaultBackground
	}
	doc, err := domain.NewDocument(opt.Width, opt.Height)
	if err != nil {
		return nil, err
	}
	surf := opt.Surface
	if surf == nil {
		surf = surface.NewGG()
	}
	if err := surf.Create(opt.Width, opt.Height, opt.Background); err != nil {
		return nil, err
	}
	id := domain.NewID()
	s := &Session{
		id:       id,
		doc:      doc,
		surf:     surf,
		engine:   export.NewEngine(surf),
		measurer: textlayout.NewMeasurer(),
		store:    opt.Store,
		events:   opt.Events,
		log:      applog.WithSession(applog.WithComponent("session"), id),
		watchers: make(map[int]func(Snapshot)),
		ops:      make(chan func()),
		done:     make(chan struct{}),
	}
	if s.events == nil {
		s.events = telemetry.Event
	}
	s.start()
	s.wg.Add(1)
	go s.loop()
	s.log.Info("session started", slog.Int("w", opt.Width), slog.Int("h", opt.Height))
	s.event(telemetry.EventSessionStarted, map[string]any{"w": opt.Width, "h": opt.Height})
	return s, nil
}

// start wires selection and toolbar to the surface.
func (s *Session) start() {
	s.sel = selection.New(s.surf, s.doc)
	s.sel.Attach()
	s.tb = toolbar.New(s.surf, s.sel)
	unwatch := s.sel.Observe(func(*domain.Object) { s.notify() })
	s.release = append(s.release, unwatch, s.tb.Close, s.sel.Detach)
}

func (s *Session) ID() string { return s.id }

func (s *Session) loop() {
	defer s.wg.Done()
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.done:
			return
		}
	}
}

type result struct {
	err   error
	panic any
	stack []byte
}

// do runs fn on the loop and waits. A panic inside fn is re-raised on the
// calling goroutine so deferred crash handlers there see it.
func (s *Session) do(ctx context.Context, fn func() error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	res := make(chan result, 1)
	op := func() {
		defer func() {
			if r := recover(); r != nil {
				res <- result{panic: r, stack: debug.Stack()}
			}
		}()
		if err := ctx.Err(); err != nil {
			res <- result{err: err}
			return
		}
		res <- result{err: fn()}
	}
	select {
	case s.ops <- op:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once posted the op runs to completion, so its result is the outcome
	// even if ctx expires meanwhile.
	r := <-res
	if r.panic != nil {
		s.log.Error("panic in session operation", slog.Any("panic", r.panic), slog.String("stack", string(r.stack)))
		panic(r.panic)
	}
	return r.err
}

// Close releases subscriptions and the surface. It is safe to call twice.
func (s *Session) Close() error {
	err := ErrClosed
	s.closeOnce.Do(func() {
		err = nil
		s.closed.Store(true)
		s.cropGen.Add(1)
		fin := make(chan struct{})
		s.ops <- func() {
			defer close(fin)
			for i := len(s.release) - 1; i >= 0; i-- {
				s.release[i]()
			}
			s.release = nil
			s.watchers = map[int]func(Snapshot){}
			s.crop = nil
			s.surf.Dispose()
		}
		<-fin
		close(s.done)
		s.wg.Wait()
		s.log.Info("session closed")
	})
	return err
}

// staleIfClosed maps a close that raced a continuation to ErrStale.
func staleIfClosed(err error) error {
	if errors.Is(err, ErrClosed) {
		return fmt.Errorf("%w: %w", ErrStale, err)
	}
	return err
}

// event forwards an anonymous usage event.
func (s *Session) event(name string, props map[string]any) {
	if s.events != nil {
		s.events(name, props)
	}
}
