package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppName        = "company-lens"
	DebugLogName   = "debug.log"
	ConfigFileName = "config.yaml"
)

func GetCacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func GetConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func GetDebugLogFile() string {
	return filepath.Join(GetCacheDir(), DebugLogName)
}

func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}

// EnsureDir creates the parent directory of file.
func EnsureDir(file string) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func xdgDir(env, homeSubdir string) string {
	base := os.Getenv(env)
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), AppName)
		}
		base = filepath.Join(homeDir, homeSubdir)
	}
	return filepath.Join(base, AppName)
}
