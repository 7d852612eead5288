/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package artifact stores exported design files so hosts can download them.
//
// Every artifact is keyed by a ULID and carries its metadata. Implementations
// exist for memory, a local directory, SQLite (with an LRU byte cap),
// PostgreSQL and S3; Open picks one from configuration.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"gotshirtdesigner/internal/config"
	applog "gotshirtdesigner/internal/log"
)

var (
	ErrNotFound  = errors.New("artifact not found")
	ErrInvalidID = errors.New("invalid artifact id")
)

// Meta describes a stored artifact.
type Meta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Multiplier  int       `json:"multiplier,omitempty"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
}

// Artifact is a stored file with its metadata.
type Artifact struct {
	Meta
	Data []byte `json:"-"`
}

// Store persists artifacts. List returns newest first.
type Store interface {
	Put(ctx context.Context, a *Artifact) (Meta, error)
	Get(ctx context.Context, id string) (*Artifact, error)
	List(ctx context.Context) ([]Meta, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// prepare assigns the id, timestamp and size of a new artifact.
func prepare(a *Artifact) (Meta, error) {
	if a == nil || len(a.Data) == 0 {
		return Meta{}, errors.New("artifact has no data")
	}
	m := a.Meta
	if m.ID == "" {
		m.ID = ulid.Make().String()
	} else if err := ValidateID(m.ID); err != nil {
		return Meta{}, err
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	m.Name = path.Base(strings.ReplaceAll(m.Name, "\\", "/"))
	if m.ContentType == "" {
		m.ContentType = "application/octet-stream"
	}
	if m.Created.IsZero() {
		m.Created = time.Now().UTC()
	}
	m.Size = int64(len(a.Data))
	a.Meta = m
	return m, nil
}

// ValidateID accepts ULIDs only, which also keeps ids path-safe.
func ValidateID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Open builds the store selected by cfg.Kind.
func Open(ctx context.Context, cfg config.ArtifactsConfig) (Store, error) {
	l := applog.WithComponent("artifact")
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	var (
		st  Store
		err error
	)
	switch kind {
	case "", "memory":
		kind = "memory"
		st = NewMemory()
	case "filesystem", "fs":
		st, err = NewFilesystem(cfg.Path)
	case "sqlite":
		st, err = OpenSQLite(ctx, cfg.Path, cfg.MaxBytes)
	case "postgres", "pg":
		st, err = OpenPostgres(ctx, cfg.DSN)
	case "s3":
		st, err = OpenS3(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown artifact store %q", cfg.Kind)
	}
	if err != nil {
		l.Error("open artifact store failed", slog.String("kind", kind), slog.Any("err", err))
		return nil, err
	}
	l.Info("artifact store ready", slog.String("kind", kind))
	return st, nil
}
