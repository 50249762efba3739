package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Persister saves and restores built stores so that a restart does not require
// re-embedding the corpus.
type Persister interface {
	Save(ctx context.Context, s *Store) error
	// Load returns ErrNoSnapshot when nothing has been saved.
	Load(ctx context.Context) (*Store, error)
}

type snapshot struct {
	BuildID string    `json:"build_id"`
	BuiltAt time.Time `json:"built_at"`
	Chunks  []Chunk   `json:"chunks"`
}

// FilePersister stores a JSON snapshot at Path.
type FilePersister struct {
	Path string
}

// NewFilePersister returns a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

// Save writes the snapshot to a temporary file and renames it into place.
func (p *FilePersister) Save(ctx context.Context, s *Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot{BuildID: s.BuildID(), BuiltAt: s.BuiltAt(), Chunks: s.Chunks()})
	if err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.Path), ".index-*.json")
	if err != nil {
		return fmt.Errorf("create index snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write index snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.Path); err != nil {
		return fmt.Errorf("publish index snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot at Path.
func (p *FilePersister) Load(ctx context.Context) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read index snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode index snapshot: %w", err)
	}
	return NewStore(snap.Chunks, func(o *StoreOptions) {
		o.BuildID = snap.BuildID
		o.BuiltAt = snap.BuiltAt
	})
}
