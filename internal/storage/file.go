package storage

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/go-faster/errors"

	"stablePool/internal/model"
)

// FileStateStore stores the runner clock in a local JSON file.
type FileStateStore struct {
	Path string
}

func (s *FileStateStore) Load(ctx context.Context) (model.RunnerState, bool, error) {
	if s == nil || s.Path == "" {
		return model.RunnerState{}, false, nil
	}
	var st model.RunnerState
	ok, err := readJSON(s.Path, &st)
	if err != nil || !ok {
		return model.RunnerState{}, false, err
	}
	return st, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, st model.RunnerState) error {
	if s == nil || s.Path == "" {
		return nil
	}
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return writeJSON(s.Path, st)
}

// FileSnapshotStore stores pool records in a local JSON file.
type FileSnapshotStore struct {
	Path string
}

func (s *FileSnapshotStore) LoadSnapshots(ctx context.Context) ([]model.PoolSnapshot, error) {
	if s == nil || s.Path == "" {
		return nil, nil
	}
	var snaps []model.PoolSnapshot
	if _, err := readJSON(s.Path, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *FileSnapshotStore) SaveSnapshots(ctx context.Context, snaps []model.PoolSnapshot) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if snaps == nil {
		snaps = []model.PoolSnapshot{}
	}
	return writeJSON(s.Path, snaps)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "parse %s", path)
	}
	return true, nil
}

// writeJSON replaces path atomically via a temp file.
func writeJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write state tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "rename state")
	}
	return nil
}
