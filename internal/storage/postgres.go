/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "scenewriter/internal/log"
)

// ErrWorkspaceNotFound is returned when a named workspace does not exist in the store.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// pgSchema is applied on open; every statement is idempotent.
var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS workspaces (
		name       TEXT PRIMARY KEY,
		manifest   JSONB       NOT NULL,
		version    BIGINT      NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id            BIGSERIAL PRIMARY KEY,
		workspace     TEXT    NOT NULL REFERENCES workspaces(name) ON DELETE CASCADE,
		doc_type      TEXT    NOT NULL,
		path          TEXT    NOT NULL,
		scene_id      TEXT    NOT NULL,
		scene_no      INTEGER NOT NULL,
		speaker       TEXT,
		raw_text      TEXT,
		search_vector tsvector GENERATED ALWAYS AS (to_tsvector('simple', COALESCE(raw_text, ''))) STORED
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_workspace ON documents(workspace)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_search ON documents USING GIN(search_vector)`,
}

// WorkspaceInfo summarizes a stored workspace.
type WorkspaceInfo struct {
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PGStore keeps workspaces in Postgres, keyed by name.
type PGStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenPG connects to Postgres through the pgx driver and ensures the schema exists.
func OpenPG(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	for _, q := range pgSchema {
		if _, err := db.ExecContext(pctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &PGStore{db: db, log: applog.WithComponent("pgstore")}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error { return s.db.Close() }

// Put stores the manifest under name, replacing any previous version, and refreshes
// its search documents. It returns the new version number.
func (s *PGStore) Put(ctx context.Context, name string, m Manifest) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("workspace name is required")
	}
	m.Version = ManifestVersion
	b, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("marshal manifest: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ver int64
	err = tx.QueryRowContext(ctx, `INSERT INTO workspaces(name, manifest) VALUES($1, $2)
		ON CONFLICT (name) DO UPDATE SET manifest = EXCLUDED.manifest, version = workspaces.version + 1, updated_at = now()
		RETURNING version`, name, string(b)).Scan(&ver)
	if err != nil {
		return 0, fmt.Errorf("upsert workspace: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE workspace = $1`, name); err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	for _, r := range documentsOf(m) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents(workspace, doc_type, path, scene_id, scene_no, speaker, raw_text) VALUES($1,$2,$3,$4,$5,$6,$7)`,
			name, r.typeStr, r.path, r.sceneID, r.sceneNo, r.speaker, r.text); err != nil {
			return 0, fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.log.Info("workspace stored", slog.String("workspace", name), slog.Int64("version", ver))
	return ver, nil
}

// Get loads the manifest stored under name.
func (s *PGStore) Get(ctx context.Context, name string) (Manifest, int64, error) {
	var (
		raw []byte
		ver int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT manifest, version FROM workspaces WHERE name = $1`, name).Scan(&raw, &ver)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Manifest{}, 0, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, name)
	case err != nil:
		return Manifest{}, 0, fmt.Errorf("select workspace: %w", err)
	}
	if err := ValidateManifest(raw); err != nil {
		return Manifest{}, 0, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, 0, fmt.Errorf("parse manifest: %w", err)
	}
	return m, ver, nil
}

// List returns all stored workspaces, most recently updated first.
func (s *PGStore) List(ctx context.Context) ([]WorkspaceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version, updated_at FROM workspaces ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []WorkspaceInfo
	for rows.Next() {
		var w WorkspaceInfo
		if err := rows.Scan(&w.Name, &w.Version, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Delete removes a stored workspace and its documents.
func (s *PGStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, name)
	}
	return nil
}

// Search runs the same query shape as the embedded index against the stored documents
// of one workspace, using tsvector matching.
func (s *PGStore) Search(ctx context.Context, name string, q SearchQuery) ([]SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if strings.TrimSpace(q.Text) != "" {
		tq := place(q.Text)
		b.WriteString("SELECT d.id, d.doc_type, d.path, d.scene_id, d.scene_no, COALESCE(d.speaker,''), ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(d.raw_text,''), plainto_tsquery('simple', " + tq + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM documents d WHERE d.workspace = " + place(name) + " AND d.search_vector @@ plainto_tsquery('simple', " + tq + ") ")
	} else {
		b.WriteString("SELECT d.id, d.doc_type, d.path, d.scene_id, d.scene_no, COALESCE(d.speaker,''), '' ")
		b.WriteString("FROM documents d WHERE d.workspace = " + place(name) + " ")
	}
	if len(q.Types) > 0 {
		b.WriteString(" AND d.doc_type = ANY (" + place(q.Types) + ") ")
	}
	if q.SceneFrom > 0 {
		b.WriteString(" AND d.scene_no >= " + place(q.SceneFrom) + " ")
	}
	if q.SceneTo > 0 {
		b.WriteString(" AND d.scene_no <= " + place(q.SceneTo) + " ")
	}
	if sp := strings.TrimSpace(q.Speaker); sp != "" {
		b.WriteString(" AND lower(d.speaker) = " + place(strings.ToLower(sp)) + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.scene_no, d.id LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.SceneID, &r.SceneNo, &r.Speaker, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
