package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appConfDir = "imgdrop"
	// EnvPath overrides the default config file location.
	EnvPath = "IMGDROP_CONFIG"
)

// DefaultPath returns the config file path used when none is given explicitly.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	d, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config directory look-up: %w", err)
	}
	return filepath.Join(d, appConfDir, DefaultFileName), nil
}
