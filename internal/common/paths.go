package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveDataDir returns the root DocBro data directory. An explicit override
// (config data_dir or DOCBRO_DATA_DIR) wins; otherwise the platform user data
// directory is used: $XDG_DATA_HOME or ~/.local/share on Linux,
// ~/Library/Application Support on macOS, %LOCALAPPDATA% on Windows.
func ResolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, "docbro"), nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "docbro"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "docbro"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "docbro"), nil
}

// ProjectDir returns the data directory for a named project, creating it if
// needed.
func ProjectDir(dataDir, projectName string) (string, error) {
	dir := filepath.Join(dataDir, "projects", SanitizeName(projectName))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create project directory: %w", err)
	}
	return dir, nil
}

// ReportsDir returns the error-report directory for a named project, creating
// it if needed.
func ReportsDir(dataDir, projectName string) (string, error) {
	projectDir, err := ProjectDir(dataDir, projectName)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(projectDir, "reports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	return dir, nil
}

// SanitizeName converts a project name to a filesystem-safe directory name.
func SanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	sanitized := replacer.Replace(strings.TrimSpace(name))
	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
