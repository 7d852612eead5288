/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server offers published design exports for download over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"gotshirtdesigner/internal/artifact"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/version"
)

// Options configures the router.
type Options struct {
	Token   string   // bearer token for /api; empty disables auth
	Origins []string // extra allowed CORS origins besides localhost
}

// NewRouter wires the artifact API onto a chi router.
func NewRouter(store artifact.Store, opt Options) http.Handler {
	l := applog.WithComponent("server")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(l))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:  opt.Origins,
		AllowOriginFunc: allowOrigin(opt.Origins),
		AllowedMethods:  []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders:  []string{"Accept", "Authorization"},
		ExposedHeaders:  []string{"Content-Disposition"},
		MaxAge:          300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok", "version": version.String()})
	})

	r.Route("/api/artifacts", func(r chi.Router) {
		r.Use(bearer(opt.Token))
		r.Get("/", handleList(store, l))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGet(store, l))
			r.Delete("/", handleDelete(store, l))
		})
	})
	return r
}

// Serve runs the router on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	l := applog.WithComponent("server")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	l.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	l.Info("server stopped")
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func allowOrigin(extra []string) func(*http.Request, string) bool {
	return func(_ *http.Request, origin string) bool {
		for _, o := range extra {
			if o == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
		return false
	}
}

func bearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
				writeError(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}
			got := strings.TrimSpace(auth[len(prefix):])
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, r, http.StatusUnauthorized, errors.New("invalid token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func handleList(store artifact.Store, l *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metas, err := store.List(r.Context())
		if err != nil {
			l.Error("list artifacts", slog.Any("err", err))
			writeError(w, r, http.StatusInternalServerError, errors.New("failed to list artifacts"))
			return
		}
		if metas == nil {
			metas = []artifact.Meta{}
		}
		render.JSON(w, r, metas)
	}
}

func handleGet(store artifact.Store, l *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := artifact.ValidateID(id); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		a, err := store.Get(r.Context(), id)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				l.Error("get artifact", slog.Any("err", err))
			}
			writeError(w, r, status, err)
			return
		}
		w.Header().Set("Content-Type", a.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
		disp := "attachment"
		if r.URL.Query().Get("inline") != "" {
			disp = "inline"
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType(disp, map[string]string{"filename": a.Name}))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(a.Data)
	}
}

func handleDelete(store artifact.Store, l *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := artifact.ValidateID(id); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				l.Error("delete artifact", slog.Any("err", err))
			}
			writeError(w, r, status, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, artifact.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// Addr normalises a listen address; a bare port gets a leading colon.
func Addr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ":8080"
	}
	if _, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf(":%s", s)
	}
	return s
}
