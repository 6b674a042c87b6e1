package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetDayflowStateHome returns a directory path for storing user-specific
// dayflow state data (logs, traces, the local database). If needed, it also
// creates the necessary directories for storing state data according to the
// XDG spec. Can be overridden by setting the DAYFLOW_STATE_HOME environment
// variable.
func GetDayflowStateHome() (string, error) {
	dayflowStateDir := os.Getenv("DAYFLOW_STATE_HOME")
	if dayflowStateDir != "" {
		err := os.MkdirAll(dayflowStateDir, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create Dayflow state directory from DAYFLOW_STATE_HOME: %w", err)
		}
		return dayflowStateDir, nil
	}

	dayflowStateDir = filepath.Join(xdg.StateHome, "dayflow")
	err := os.MkdirAll(dayflowStateDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create Dayflow state directory: %w", err)
	}
	return dayflowStateDir, nil
}

// GetDefaultConfigPath returns the default path for the dayflow config file.
func GetDefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "dayflow", "config.yaml")
}

// GetDefaultFlagsPath returns the default path for the local feature flags file.
func GetDefaultFlagsPath() string {
	return filepath.Join(xdg.ConfigHome, "dayflow", "flags.yaml")
}
