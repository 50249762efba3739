// Package sqlite implements a durable ticket.Store. Ticket numbers continue
// across restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/ragdesk/ticket"
)

var _ ticket.Store = (*Store)(nil)

// Store persists tickets in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Number allocation happens inside one transaction per ticket.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS ticket_counter (
		id    INTEGER PRIMARY KEY CHECK (id = 1),
		next  INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO ticket_counter (id, next) VALUES (1, %d);
	CREATE TABLE IF NOT EXISTS tickets (
		number                INTEGER PRIMARY KEY,
		ticket_id             TEXT NOT NULL UNIQUE,
		title                 TEXT NOT NULL,
		description           TEXT NOT NULL,
		category              TEXT NOT NULL,
		priority              TEXT NOT NULL,
		status                TEXT NOT NULL,
		created_at            TEXT NOT NULL,
		estimated_resolution  TEXT NOT NULL,
		assigned_to           TEXT NOT NULL
	);
	`, ticket.FirstNumber))
	return err
}

// Create allocates the next number and inserts the ticket atomically.
func (s *Store) Create(ctx context.Context, nt ticket.NewTicket) (*ticket.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`UPDATE ticket_counter SET next = next + 1 WHERE id = 1 RETURNING next - 1`).Scan(&next); err != nil {
		return nil, fmt.Errorf("allocate ticket number: %w", err)
	}

	t := ticket.Materialize(next, nt, s.now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (number, ticket_id, title, description, category, priority, status, created_at, estimated_resolution, assigned_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Number, t.ID, t.Title, t.Description, t.Category, t.Priority, t.Status,
		t.CreatedAt.Format(time.RFC3339), t.EstimatedResolution, t.AssignedTo,
	); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

const selectColumns = `number, ticket_id, title, description, category, priority, status, created_at, estimated_resolution, assigned_to`

// Get looks up a ticket by id.
func (s *Store) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	n, err := ticket.ParseID(id)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM tickets WHERE number = ?`, n)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticket.ErrNotFound
	}
	return t, err
}

// List returns all tickets in number order.
func (s *Store) List(ctx context.Context) ([]*ticket.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM tickets ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(sc scanner) (*ticket.Ticket, error) {
	var (
		t       ticket.Ticket
		created string
	)
	if err := sc.Scan(&t.Number, &t.ID, &t.Title, &t.Description, &t.Category, &t.Priority,
		&t.Status, &created, &t.EstimatedResolution, &t.AssignedTo); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	t.CreatedAt = ts
	return &t, nil
}
