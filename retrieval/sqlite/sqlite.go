// Package sqlite persists retrieval indexes in a SQLite database. Vectors are
// stored as little-endian float32 BLOBs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/ragdesk/retrieval"
)

var _ retrieval.Persister = (*Persister)(nil)

// Persister implements retrieval.Persister on SQLite. Each Save replaces the
// previous snapshot in a single transaction.
type Persister struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Persister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	p := &Persister{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Persister) migrate() error {
	_, err := p.db.Exec(`
	CREATE TABLE IF NOT EXISTS index_builds (
		id        INTEGER PRIMARY KEY CHECK (id = 1),
		build_id  TEXT NOT NULL,
		built_at  TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS index_chunks (
		seq         INTEGER PRIMARY KEY,
		chunk_id    TEXT NOT NULL,
		article_id  TEXT NOT NULL,
		title       TEXT NOT NULL,
		category    TEXT NOT NULL,
		text        TEXT NOT NULL,
		vector      BLOB NOT NULL
	);
	`)
	return err
}

// Save replaces the stored snapshot with s.
func (p *Persister) Save(ctx context.Context, s *retrieval.Store) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_builds (id, build_id, built_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET build_id = excluded.build_id, built_at = excluded.built_at`,
		s.BuildID(), s.BuiltAt().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("write build: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO index_chunks (seq, chunk_id, article_id, title, category, text, vector) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range s.Chunks() {
		if _, err := stmt.ExecContext(ctx, i, c.ID, c.ArticleID, c.Title, c.Category, c.Text, encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("write chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Load restores the last saved snapshot in its original chunk order.
func (p *Persister) Load(ctx context.Context) (*retrieval.Store, error) {
	var buildID, builtAt string
	err := p.db.QueryRowContext(ctx, `SELECT build_id, built_at FROM index_builds WHERE id = 1`).Scan(&buildID, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, retrieval.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read build: %w", err)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT chunk_id, article_id, title, category, text, vector FROM index_chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	defer rows.Close()

	var chunks []retrieval.Chunk
	for rows.Next() {
		var (
			c    retrieval.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Title, &c.Category, &c.Text, &blob); err != nil {
			return nil, err
		}
		if c.Vector, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ts, _ := time.Parse(time.RFC3339Nano, builtAt)
	return retrieval.NewStore(chunks, func(o *retrieval.StoreOptions) {
		o.BuildID = buildID
		o.BuiltAt = ts
	})
}

// Close closes the database.
func (p *Persister) Close() error {
	return p.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
