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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "gotshirtdesigner/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// DefaultSQLiteFile is used when the configured path is a directory or empty.
const DefaultSQLiteFile = "artifacts.sqlite"

type sqliteStore struct {
	db       *sql.DB
	capBytes int64
	log      *slog.Logger
}

// OpenSQLite opens or creates the artifact database at path with WAL enabled.
// When capBytes > 0, Put evicts least recently used rows until the stored
// total fits.
func OpenSQLite(ctx context.Context, path string, capBytes int64) (Store, error) {
	l := applog.WithOperation(applog.WithComponent("artifact"), "sqlite_open")
	if strings.TrimSpace(path) == "" {
		path = DefaultSQLiteFile
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, DefaultSQLiteFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("sqlite artifact store ready", slog.String("path", path), slog.Int64("cap_bytes", capBytes))
	return &sqliteStore{db: db, capBytes: capBytes, log: applog.WithComponent("artifact")}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			id           TEXT PRIMARY KEY,
			name         TEXT    NOT NULL,
			content_type TEXT    NOT NULL,
			multiplier   INTEGER NOT NULL DEFAULT 0,
			size         INTEGER NOT NULL,
			data         BLOB    NOT NULL,
			created_at   INTEGER NOT NULL,
			last_access  INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_access ON artifacts(last_access)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at)`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure artifacts schema: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) Put(ctx context.Context, a *Artifact) (Meta, error) {
	m, err := prepare(a)
	if err != nil {
		return Meta{}, err
	}
	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx, `INSERT INTO artifacts(id,name,content_type,multiplier,size,data,created_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, content_type=excluded.content_type,
			multiplier=excluded.multiplier, size=excluded.size, data=excluded.data, last_access=excluded.last_access`,
		m.ID, m.Name, m.ContentType, m.Multiplier, m.Size, a.Data, m.Created.UnixNano(), now)
	if err != nil {
		return Meta{}, fmt.Errorf("upsert artifact: %w", err)
	}
	if s.capBytes > 0 {
		if err := s.evictToFit(ctx, m.ID); err != nil {
			return Meta{}, err
		}
	}
	return m, nil
}

// evictToFit deletes least recently used rows until the total size is at
// most the cap. The row just written is never evicted.
func (s *sqliteStore) evictToFit(ctx context.Context, keep string) error {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM artifacts`).Scan(&total); err != nil {
		return fmt.Errorf("sum artifact size: %w", err)
	}
	if total <= s.capBytes {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, size FROM artifacts WHERE id <> ? ORDER BY last_access ASC, id ASC`, keep)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > s.capBytes {
		var id string
		var sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// close the cursor before writing on the single connection
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM artifacts WHERE id IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	s.log.Info("artifacts evicted", slog.Int("count", len(victims)), slog.Int64("total", cur))
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*Artifact, error) {
	var (
		a       Artifact
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id,name,content_type,multiplier,size,data,created_at FROM artifacts WHERE id=?`, id).
		Scan(&a.ID, &a.Name, &a.ContentType, &a.Multiplier, &a.Size, &a.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}
	a.Created = time.Unix(0, created).UTC()
	// touch
	_, _ = s.db.ExecContext(ctx, `UPDATE artifacts SET last_access=? WHERE id=?`, time.Now().UnixNano(), id)
	return &a, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,content_type,multiplier,size,created_at FROM artifacts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []Meta
	for rows.Next() {
		var m Meta
		var created int64
		if err := rows.Scan(&m.ID, &m.Name, &m.ContentType, &m.Multiplier, &m.Size, &created); err != nil {
			return nil, err
		}
		m.Created = time.Unix(0, created).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalBytes reports the stored byte total; used by tests and the status log.
func (s *sqliteStore) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM artifacts`).Scan(&total)
	return total, err
}

func (s *sqliteStore) Close() error { return s.db.Close() }
