package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default database directory based on the host
// OS. It prefers standard locations when available and falls back to a
// dotdir in the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "lattice")
	}

	// Common Linux/Unix system dir
	if isDir("/var/lib") {
		return "/var/lib/lattice"
	}

	// macOS: ~/Library/Application Support/Lattice
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Lattice")
	}

	// Windows: %USERPROFILE%/AppData/Local/Lattice
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Lattice")
	}

	// Fallback: ~/.lattice
	return filepath.Join(homeDir, ".lattice")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
