/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	applog "gotshirtdesigner/internal/log"
)

// fsStore keeps <id>.bin with the bytes and <id>.json with the metadata.
type fsStore struct {
	dir string
	log *slog.Logger
}

// NewFilesystem stores artifacts under dir, creating it if needed.
func NewFilesystem(dir string) (Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("filesystem store: path is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &fsStore{dir: dir, log: applog.WithComponent("artifact").With(slog.String("dir", dir))}, nil
}

func (s *fsStore) dataPath(id string) string { return filepath.Join(s.dir, id+".bin") }
func (s *fsStore) metaPath(id string) string { return filepath.Join(s.dir, id+".json") }

func (s *fsStore) Put(_ context.Context, a *Artifact) (Meta, error) {
	m, err := prepare(a)
	if err != nil {
		return Meta{}, err
	}
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("marshal meta: %w", err)
	}
	if err := writeAtomic(s.dataPath(m.ID), a.Data); err != nil {
		return Meta{}, err
	}
	// metadata last: an artifact without .json is not listed
	if err := writeAtomic(s.metaPath(m.ID), mb); err != nil {
		_ = os.Remove(s.dataPath(m.ID))
		return Meta{}, err
	}
	s.log.Debug("artifact stored", slog.String("id", m.ID), slog.Int64("size", m.Size))
	return m, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *fsStore) readMeta(id string) (Meta, error) {
	b, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return Meta{}, ErrNotFound
	}
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("decode meta %s: %w", id, err)
	}
	return m, nil
}

func (s *fsStore) Get(_ context.Context, id string) (*Artifact, error) {
	if ValidateID(id) != nil {
		return nil, ErrNotFound
	}
	m, err := s.readMeta(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.dataPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Artifact{Meta: m, Data: data}, nil
}

func (s *fsStore) List(_ context.Context) ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}
	var out []Meta
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || ValidateID(id) != nil {
			continue
		}
		m, err := s.readMeta(id)
		if err != nil {
			s.log.Warn("skip unreadable artifact", slog.String("id", id), slog.Any("err", err))
			continue
		}
		out = append(out, m)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *fsStore) Delete(_ context.Context, id string) error {
	if ValidateID(id) != nil {
		return ErrNotFound
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	_ = os.Remove(s.dataPath(id))
	return nil
}

func (s *fsStore) Close() error { return nil }
