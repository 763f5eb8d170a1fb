// Package defaults provides the embedded seed files for a new data directory.
// These are copied to the platform data directory on first run or when reset is requested.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/Salafibot/
//	Windows: %AppData%\Salafibot\
//	Linux:   ~/.config/salafibot/
//
// Override with SALAFIBOT_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// The seed tree lives in an underscore directory so the go tool never
// compiles the interpreted command sources it ships.
//
//go:embed all:_dotsalafibot
var defaultFiles embed.FS

const seedRoot = "_dotsalafibot"

const (
	// ConfigDocument is the command catalog document inside the data dir.
	ConfigDocument = "config.json"
	// CommandsDir is the module tree root inside the data dir.
	CommandsDir = "commands"
	// DatabaseFile is the SQLite document store inside the data dir.
	DatabaseFile = "salafibot.db"
)

// DataDir returns the platform-appropriate data directory.
// Set SALAFIBOT_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("SALAFIBOT_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "salafibot"), nil
	}
	return filepath.Join(configDir, "Salafibot"), nil
}

// Seed creates dir and copies the embedded defaults into it.
// If overwrite is true, existing files are replaced.
func Seed(dir string, overwrite bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return copyDefaults(dir, overwrite)
}

// Reset replaces seed files with the embedded defaults.
// The catalog document is preserved.
func Reset(dir string) error {
	if err := copyDefaults(dir, true); err != nil {
		return err
	}
	return nil
}

func copyDefaults(dir string, overwrite bool) error {
	return fs.WalkDir(defaultFiles, seedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == seedRoot {
			return nil
		}

		// embed.FS always uses forward slashes
		relPath := strings.TrimPrefix(path, seedRoot+"/")
		destPath := filepath.Join(dir, filepath.FromSlash(relPath))

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}

		if _, err := os.Stat(destPath); err == nil {
			if !overwrite || relPath == ConfigDocument {
				return nil
			}
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}

// ListDefaults returns the relative paths of all default files.
func ListDefaults() ([]string, error) {
	var files []string
	err := fs.WalkDir(defaultFiles, seedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, strings.TrimPrefix(path, seedRoot+"/"))
		}
		return nil
	})
	return files, err
}
