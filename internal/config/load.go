package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
)

// Environment variables read by the loader.
const (
	EnvConfig   = "XMLLS_CONFIG"
	EnvCacheDir = "XMLLS_CACHE_DIR"
)

// DefaultFileName is the settings file looked up in the user config dir.
const DefaultFileName = "xmlls.lua"

// appName names the per-user config and cache directories.
const appName = "xmlls"

// Loader locates and parses the settings file.
type Loader struct {
	parser *Parser
	logger *slog.Logger
}

// NewLoader creates a loader. The detector feeds the Lua platform table.
func NewLoader(detector platform.Detector, opts ...ParserOption) *Loader {
	parser := NewParser(detector, opts...)
	return &Loader{parser: parser, logger: parser.logger}
}

// ResolvePath returns the settings file to read and whether it was asked for
// explicitly (argument or XMLLS_CONFIG). Without an explicit path the user
// config dir is searched for xmlls.lua, then xmlls.yaml and xmlls.yml.
func ResolvePath(path string) (string, bool, error) {
	if path != "" {
		return ExpandHome(path), true, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return ExpandHome(env), true, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false, fmt.Errorf("locate config dir: %w", err)
	}

	candidates := []string{DefaultFileName, appName + ".yaml", appName + ".yml"}
	for _, name := range candidates {
		p := filepath.Join(dir, appName, name)
		if _, err := os.Stat(p); err == nil {
			return p, false, nil
		}
	}
	return filepath.Join(dir, appName, DefaultFileName), false, nil
}

// Load reads settings from path (see ResolvePath). A missing default file
// yields Defaults(); a missing explicit file is an error. XMLLS_CACHE_DIR
// overrides cache_dir.
func (l *Loader) Load(ctx context.Context, path string) (*Settings, error) {
	resolved, explicit, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	settings, err := l.loadFile(ctx, resolved)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		l.logger.Debug("no settings file, using defaults", "path", resolved)
		settings = Defaults()
	case err != nil:
		return nil, err
	default:
		l.logger.Debug("loaded settings", "path", resolved)
	}

	if dir := os.Getenv(EnvCacheDir); dir != "" {
		settings.CacheDir = dir
	}
	return settings, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".lua":
		return l.parser.ParseString(ctx, string(data))
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported settings format %q (expected .lua, .yaml or .yml)", ext)
	}
}

// CacheRoot returns the artifact cache root: cache_dir when set, otherwise
// the user cache dir.
func (s *Settings) CacheRoot() (string, error) {
	if s.CacheDir != "" {
		return ExpandHome(s.CacheDir), nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// ExpandHome replaces a leading ~/ with the user's home directory. Paths it
// cannot expand are returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
