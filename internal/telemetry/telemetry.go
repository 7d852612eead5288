/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous design events and crash reports.
//
// Events are small and scalar-only: an event never carries text, colours,
// image bytes or file names from a design. They are queued without blocking
// the session loop and posted in batches.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "GTD_TELEMETRY_OPT_IN" // "1", "true", "yes", "on"
	EnvURL       = "GTD_TELEMETRY_URL"    // events endpoint
	EnvCrashURL  = "GTD_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "GTD_TELEMETRY_TIMEOUT_MS" // default 1500
	EnvDebug     = "GTD_TELEMETRY_DEBUG"
)

// Event names emitted by the designer.
const (
	EventSessionStarted = "session_started"
	EventTextAdded      = "text_added"
	EventLogoAdded      = "logo_added"
	EventCropApplied    = "crop_applied"
	EventDesignExported = "design_exported"
	EventScriptRun      = "script_run"
)

const (
	queueSize     = 64
	batchSize     = 16
	flushInterval = 2 * time.Second
)

// Config holds runtime configuration for telemetry and crash uploads.
// Nothing is sent unless OptIn is set and the matching URL is configured.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// Payload is one event as posted to EventsURL.
type Payload struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Batch is the request body of an events POST.
type Batch struct {
	Events []Payload `json:"events"`
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMS))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// Configure installs the default client from env, with optIn from the user
// config. The env opt-in still wins when set.
func Configure(optIn bool) {
	cfg := FromEnv()
	if strings.TrimSpace(os.Getenv(EnvOptIn)) == "" {
		cfg.OptIn = optIn
	}
	NewDefault(cfg)
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client queues events and posts them from a single goroutine. A full queue
// drops events; send errors are only logged in debug mode.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan Payload
	flushc  chan chan struct{}
	once    sync.Once
	closed  chan struct{}
	stopped chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault installs a client from env unless one is already installed.
func InitDefault() { current() }

func current() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// NewDefault replaces the default client with one built from cfg.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// New constructs a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		q:       make(chan Payload, queueSize),
		flushc:  make(chan chan struct{}),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client sends events.
func Enabled() bool { return current().Enabled() }

// Event queues an event if enabled. Non-scalar props are dropped.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	p := Payload{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	for k, v := range props {
		switch v.(type) {
		case bool, int, int64, float64, string:
			if p.Props == nil {
				p.Props = make(map[string]any, len(props))
			}
			p.Props[k] = v
		}
	}
	select {
	case c.q <- p:
	default:
	}
}

// Event queues an event on the default client.
func Event(name string, props map[string]any) { current().Event(name, props) }

// Flush sends everything queued so far and waits for it, or for ctx.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	select {
	case c.flushc <- done:
	case <-c.stopped:
		return
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the sender after posting what is still queued.
func (c *Client) Close() {
	c.once.Do(func() { close(c.closed) })
	<-c.stopped
}

func (c *Client) loop() {
	defer close(c.stopped)
	tick := time.NewTicker(flushInterval)
	defer tick.Stop()
	var batch []Payload
	send := func() {
		if len(batch) > 0 {
			c.send(batch)
			batch = nil
		}
	}
	drain := func() {
		for {
			select {
			case p := <-c.q:
				batch = append(batch, p)
			default:
				return
			}
		}
	}
	for {
		select {
		case <-c.closed:
			drain()
			send()
			return
		case p := <-c.q:
			batch = append(batch, p)
			if len(batch) >= batchSize {
				send()
			}
		case done := <-c.flushc:
			drain()
			send()
			close(done)
		case <-tick.C:
			send()
		}
	}
}

func (c *Client) send(batch []Payload) {
	buf, err := json.Marshal(Batch{Events: batch})
	if err != nil {
		return
	}
	c.post(c.cfg.EventsURL, "application/json", buf, "events", slog.Int("events", len(batch)))
}

func (c *Client) post(url, contentType string, body []byte, what string, attrs ...any) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry "+what+" failed", append(attrs, slog.Any("err", err))...)
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry "+what+" sent", append(attrs, slog.Int("status", resp.StatusCode))...)
	}
}

// UploadCrash posts a crash report if opted in. It blocks for at most the
// client timeout since the process exits right after.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report, "crash upload", slog.Int("bytes", len(report)))
}

// UploadCrash posts a crash report through the default client.
func UploadCrash(report []byte) { current().UploadCrash(report) }
