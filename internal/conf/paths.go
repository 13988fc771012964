package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config.yaml only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		configPaths = []string{".", filepath.Join(homeDir, "AppData", "Roaming", "infant-guard")}
	default:
		configPaths = []string{".", filepath.Join(homeDir, ".config", "infant-guard"), "/etc/infant-guard"}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}

// FindConfigFile returns the path of the first existing config.yaml.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	for _, path := range configPaths {
		candidate := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.NotFound("config file", "config.yaml")
}
