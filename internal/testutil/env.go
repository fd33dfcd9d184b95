// Package testutil provides utilities for testing xmlls in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string
	ConfigDir  string
	ConfigFile string
	CacheDir   string
}

// SetupTestEnv creates isolated test directories for each test and points
// the xmlls environment variables at them, so tests never touch the user's
// settings file or artifact cache.
//
// The settings file itself is not created. Cleanup is handled by t.TempDir().
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:      tmpDir,
		ConfigDir: filepath.Join(tmpDir, "config"),
		CacheDir:  filepath.Join(tmpDir, "cache"),
	}
	env.ConfigFile = filepath.Join(env.ConfigDir, "xmlls.lua")

	t.Setenv("XMLLS_CONFIG", env.ConfigFile)
	t.Setenv("XMLLS_CACHE_DIR", env.CacheDir)

	// os.UserConfigDir / os.UserCacheDir fallbacks
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg-config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmpDir, "xdg-cache"))

	for _, dir := range []string{env.ConfigDir, env.CacheDir, filepath.Join(tmpDir, "home")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}

// WriteConfig writes content to the isolated settings file.
func (e *Env) WriteConfig(t *testing.T, content string) {
	t.Helper()

	if err := os.WriteFile(e.ConfigFile, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}
}
