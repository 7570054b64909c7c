package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// appDirName is a directory in the user's data directory where planesync keeps its state
	appDirName string = "planesync"

	stateFileName string = "state.json"
)

// DataDir returns the planesync data directory, honoring XDG_DATA_HOME
func DataDir() (string, error) {
	var dataDir string

	// Try XDG_DATA_HOME first, then fallback to ~/.local/share
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		dataDir = xdgDataHome
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot obtain user home dir: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, appDirName), nil
}

// DefaultStateFile returns the path used for the sync record when STATE_FILE is not set
func DefaultStateFile() string {
	dataDir, err := DataDir()
	if err != nil {
		return ".state.json"
	}
	return filepath.Join(dataDir, stateFileName)
}
