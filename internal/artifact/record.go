package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// recordStore reads and writes the metadata file of an artifact directory.
type recordStore struct {
	path string
}

// load returns the stored record. A missing file yields the zero record and
// no error; an unreadable or corrupt file yields the zero record and an error
// the caller may log.
func (s recordStore) load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}

	if rec.Checksum != "" {
		rec.Checksum = NormalizeChecksum(rec.Checksum)
		if _, err := AlgorithmFor(rec.Checksum); err != nil {
			return Record{}, fmt.Errorf("decode record: %w", err)
		}
	}

	return rec, nil
}

// save writes the record using the write-then-rename pattern.
func (s recordStore) save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename record: %w", err)
	}

	return nil
}
