package catalogfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/criptofacil/criptofacil/internal/model"
)

var ErrNotFound = errors.New("error catalog snapshot not found")

// Store persists the price catalog as a JSON snapshot on disk so the app
// can serve catalog lookups between refreshes and across restarts.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Save(snapshot model.CatalogSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}

	// Write to a temp file and rename so readers never see a torn snapshot.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename catalog snapshot: %w", err)
	}

	return nil
}

func (s *Store) Load() (model.CatalogSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.CatalogSnapshot{}, ErrNotFound
		}
		return model.CatalogSnapshot{}, fmt.Errorf("read catalog snapshot: %w", err)
	}

	snapshot := model.CatalogSnapshot{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.CatalogSnapshot{}, fmt.Errorf("unmarshal catalog snapshot: %w", err)
	}

	return snapshot, nil
}
