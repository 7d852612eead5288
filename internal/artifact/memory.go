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
	"sort"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]*Artifact
}

// NewMemory returns a process-local store.
func NewMemory() Store {
	return &memoryStore{items: make(map[string]*Artifact)}
}

func (s *memoryStore) Put(_ context.Context, a *Artifact) (Meta, error) {
	m, err := prepare(a)
	if err != nil {
		return Meta{}, err
	}
	cp := &Artifact{Meta: m, Data: append([]byte(nil), a.Data...)}
	s.mu.Lock()
	s.items[m.ID] = cp
	s.mu.Unlock()
	return m, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Artifact{Meta: a.Meta, Data: append([]byte(nil), a.Data...)}, nil
}

func (s *memoryStore) List(_ context.Context) ([]Meta, error) {
	s.mu.RLock()
	out := make([]Meta, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a.Meta)
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memoryStore) Close() error { return nil }

// sortNewestFirst orders by creation time, then id, both descending.
func sortNewestFirst(ms []Meta) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].Created.Equal(ms[j].Created) {
			return ms[i].Created.After(ms[j].Created)
		}
		return ms[i].ID > ms[j].ID
	})
}
