// Package sqlite provides a durable ArtifactStore backed by SQLite via the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mindwell-ai/mindwell/core"
	"github.com/mindwell-ai/mindwell/store"
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.ArtifactStore = (*Store)(nil)

// Open opens (or creates) the database at path and initialises the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL improves concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		summary    TEXT NOT NULL DEFAULT '',
		tags       TEXT NOT NULL DEFAULT '',
		embedding  BLOB,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_user ON artifacts(user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS entries (
		id          TEXT PRIMARY KEY,
		artifact_id TEXT NOT NULL REFERENCES artifacts(id),
		content     TEXT NOT NULL,
		provenance  TEXT NOT NULL,
		workflow_id TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_artifact ON entries(artifact_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// encodeEmbedding packs a float32 vector into little-endian bytes.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func encodeTags(tags []string) string { return strings.Join(tags, ",") }

func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// CreateArtifact persists a new artifact.
func (s *Store) CreateArtifact(ctx context.Context, a *core.Artifact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, user_id, title, summary, tags, embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Title, a.Summary, encodeTags(a.Tags), encodeEmbedding(a.Embedding),
		a.CreatedAt.UTC().Format(time.RFC3339Nano), a.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func scanArtifact(row interface{ Scan(...any) error }) (*core.Artifact, error) {
	var a core.Artifact
	var tags, createdAt, updatedAt string
	var embedding []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Summary, &tags, &embedding, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Tags = decodeTags(tags)
	a.Embedding = decodeEmbedding(embedding)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &a, nil
}

const artifactColumns = `id, user_id, title, summary, tags, embedding, created_at, updated_at`

// GetArtifact returns the artifact with the given id or store.ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, id string) (*core.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return a, err
}

// UpdateArtifact replaces the stored artifact.
func (s *Store) UpdateArtifact(ctx context.Context, a *core.Artifact) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE artifacts SET title = ?, summary = ?, tags = ?, embedding = ?, updated_at = ? WHERE id = ?`,
		a.Title, a.Summary, encodeTags(a.Tags), encodeEmbedding(a.Embedding),
		a.UpdatedAt.UTC().Format(time.RFC3339Nano), a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListArtifacts returns the user's artifacts, newest updated first.
func (s *Store) ListArtifacts(ctx context.Context, userID string) ([]*core.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*core.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindArtifactByTitle returns the user's artifact with the exact title.
func (s *Store) FindArtifactByTitle(ctx context.Context, userID, title string) (*core.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE user_id = ? AND title = ? LIMIT 1`, userID, title)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return a, err
}

// CreateEntry appends an entry and bumps the artifact's UpdatedAt.
func (s *Store) CreateEntry(ctx context.Context, e *core.ArtifactEntry) error {
	var workflow any
	if e.WorkflowID != "" {
		workflow = e.WorkflowID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, artifact_id, content, provenance, workflow_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ArtifactID, e.Content, string(e.Provenance), workflow,
		e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE artifacts SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), e.ArtifactID)
	return err
}

// UpdateEntry replaces an entry's content, keeping its ordering position.
func (s *Store) UpdateEntry(ctx context.Context, e *core.ArtifactEntry) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET content = ? WHERE id = ?`, e.Content, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE artifacts SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), e.ArtifactID)
	return err
}

// ListEntries returns entries for an artifact, newest first.
func (s *Store) ListEntries(ctx context.Context, artifactID string, filter store.EntryFilter) ([]*core.ArtifactEntry, error) {
	query := `SELECT id, artifact_id, content, provenance, workflow_id, created_at
		 FROM entries WHERE artifact_id = ?`
	args := []any{artifactID}
	if filter.Since != nil {
		query += ` AND created_at > ?`
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*core.ArtifactEntry
	for rows.Next() {
		var e core.ArtifactEntry
		var provenance, createdAt string
		var workflow sql.NullString
		if err := rows.Scan(&e.ID, &e.ArtifactID, &e.Content, &provenance, &workflow, &createdAt); err != nil {
			return nil, err
		}
		e.Provenance = core.Provenance(provenance)
		e.WorkflowID = workflow.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ListUsers enumerates user ids owning at least one artifact.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM artifacts ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
