package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

// Load reads a persisted RunState from path. A missing or unreadable file is
// not an error: the caller gets a fresh empty state, treated as a first run.
func Load(path string) (*models.RunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.NewRunState(), nil
		}
		return models.NewRunState(), fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var state models.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.NewRunState(), fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	if state.ActivationHistory == nil {
		state.ActivationHistory = map[models.RoleKind]map[string]*models.RoleHistoryRecord{}
	}
	return &state, nil
}

// Save writes the RunState to path via a temp file and rename, so a crash
// mid-write cannot leave a corrupt state file behind.
func Save(path string, state *models.RunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file %s: %w", path, err)
	}
	return nil
}
