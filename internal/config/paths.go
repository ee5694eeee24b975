package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/errors"
)

// Home returns the aegir home directory: $AEGIR_HOME when set, otherwise
// ~/.aegir.
//
// Returns an error if the home directory cannot be determined.
func Home() (string, error) {
	if dir := os.Getenv(constants.EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.AegirHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := Home()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
// This is always .aegir/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	return filepath.Join(constants.AegirHome, constants.GlobalConfigName)
}
