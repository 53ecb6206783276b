package memory

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// Store reads and rewrites the whole memory file. It does no locking of
// its own; Service serializes access to it.
type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.In("memory").With("path", path).Wrapf(err, "failed to create memory directory")
	}

	return &Store{
		path: path,
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns an empty graph when the file does not exist yet.
func (s *Store) Load() (*KnowledgeGraph, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyGraph(), nil
		}
		return nil, oops.In("memory").With("path", s.path).Wrapf(err, "failed to read memory file")
	}

	graph, err := decodeGraph(data)
	if err != nil {
		return nil, oops.In("memory").With("path", s.path).Wrapf(err, "failed to decode memory file")
	}

	return graph, nil
}

// Save overwrites the file with the full graph in a single write.
// The write is not atomic: a crash mid-write can leave a truncated file.
func (s *Store) Save(graph *KnowledgeGraph) error {
	data, err := encodeGraph(graph)
	if err != nil {
		return oops.In("memory").With("path", s.path).Wrapf(err, "failed to encode graph")
	}

	if err = os.WriteFile(s.path, data, 0644); err != nil {
		return oops.In("memory").With("path", s.path).Wrapf(err, "failed to write memory file")
	}

	return nil
}
