package fund

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TrendSentinel/internal/model"
)

// LoadState reads the capital state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.CapitalState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.CapitalState{Allocations: map[string]model.Allocation{}}, nil
		}
		return nil, err
	}
	var state model.CapitalState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode capital state: %w", err)
	}
	if state.Allocations == nil {
		state.Allocations = map[string]model.Allocation{}
	}
	return &state, nil
}

// SaveState writes the capital state atomically via a temp file.
func SaveState(filePath string, state *model.CapitalState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
