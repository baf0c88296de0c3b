package snapshot

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// WriteFile writes s as indented JSON, holding an exclusive file lock so
// concurrent exports never interleave.
func WriteFile(path string, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}
	if err := lockedfile.Write(path, bytes.NewReader(data), 0o644); err != nil {
		return errors.Wrap(err, "failed to write snapshot file")
	}
	return nil
}

// ReadFile loads a snapshot written by WriteFile.
func ReadFile(path string) (*Snapshot, error) {
	data, err := lockedfile.Read(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot file")
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal snapshot")
	}
	if s.Version != FormatVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", s.Version)
	}
	return &s, nil
}
