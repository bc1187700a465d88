package config

import (
	"log"
	"os"
	"path/filepath"
)

// Initialize writes a default configuration into the directory,
// creating it if needed. Existing files are left alone.
func Initialize(path string, logger *log.Logger) (*Configuration, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(path, ConfigurationName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Printf("Creating %s", configPath)
		if err := os.WriteFile(configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	} else {
		logger.Printf("Found existing %s", configPath)
	}

	return Load(path)
}
