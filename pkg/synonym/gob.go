package synonym

import (
	"encoding/gob"
	"fmt"
	"os"
)

// loadGob deserializes groups from a gob-encoded file.
func loadGob(path string) (map[int]Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var groups map[int]Group
	if err := gob.NewDecoder(f).Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return groups, nil
}

// SaveGob serializes the dictionary groups to a gob-encoded file at path.
func SaveGob(d *Dictionary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(d.groups); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
