// Package file loads event snapshots from a JSON document on disk or from the
// snapshot bundled into the binary.
package file

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/couchcryptid/road-event-map/internal/domain"
)

//go:embed data/events.json
var bundled []byte

// Bundled returns a copy of the snapshot compiled into the binary.
func Bundled() []byte {
	out := make([]byte, len(bundled))
	copy(out, bundled)
	return out
}

// Source reads the event array from path, or the bundled snapshot when path
// is empty. The file is re-read on every Load so a refresh picks up edits.
type Source struct {
	path string
}

// NewSource creates a Source for path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Name describes where records come from, for logs.
func (s *Source) Name() string {
	if s.path == "" {
		return "bundled"
	}
	return s.path
}

// Load implements catalog.Source.
func (s *Source) Load(ctx context.Context) ([]domain.RawEventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	records, err := domain.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("load events file %s: %w", s.Name(), err)
	}
	return records, nil
}

func (s *Source) read() ([]byte, error) {
	if s.path == "" {
		return bundled, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return data, nil
}
