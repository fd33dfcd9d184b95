package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Strategy selects which server artifact is installed and launched.
type Strategy string

const (
	// StrategyAuto uses the native binary when the host is supported and
	// falls back to the jar otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyJar always uses the uber jar (requires Java).
	StrategyJar Strategy = "jar"
	// StrategyNative always uses the native binary.
	StrategyNative Strategy = "native"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyAuto, StrategyJar, StrategyNative:
		return true
	default:
		return false
	}
}

// Settings is the editor-side configuration of the XML language server.
type Settings struct {
	// Version is a concrete server release or "latest".
	Version  string   `yaml:"version" json:"version"`
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	// CacheDir overrides the artifact cache root (supports ~).
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	Java             Java              `yaml:"java,omitempty" json:"java,omitempty"`
	Catalogs         []string          `yaml:"catalogs,omitempty" json:"catalogs,omitempty"`
	FileAssociations []FileAssociation `yaml:"file_associations,omitempty" json:"file_associations,omitempty"`
	Format           Format            `yaml:"format,omitempty" json:"format,omitempty"`
	Validation       Validation        `yaml:"validation,omitempty" json:"validation,omitempty"`
	Logs             Logs              `yaml:"logs,omitempty" json:"logs,omitempty"`

	RepositoryURL string `yaml:"repository_url,omitempty" json:"repository_url,omitempty"`
	ReleaseURL    string `yaml:"release_url,omitempty" json:"release_url,omitempty"`
	// Keyring is an OpenPGP public key file used to check jar signatures.
	Keyring string `yaml:"keyring,omitempty" json:"keyring,omitempty"`

	// Extra maps dotted server setting paths (e.g. "xml.symbols.enabled")
	// to values forwarded verbatim.
	Extra map[string]any `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Java locates the Java runtime for the jar strategy.
type Java struct {
	Home   string   `yaml:"home,omitempty" json:"home,omitempty"`
	VMArgs []string `yaml:"vmargs,omitempty" json:"vmargs,omitempty"`
}

// FileAssociation binds a grammar to files matching a glob pattern.
type FileAssociation struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	SystemID string `yaml:"system_id" json:"systemId"`
}

// Format holds formatter settings. Unset pointers leave the server default.
type Format struct {
	Enabled          *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	SplitAttributes  *bool `yaml:"split_attributes,omitempty" json:"splitAttributes,omitempty"`
	JoinCommentLines *bool `yaml:"join_comment_lines,omitempty" json:"joinCommentLines,omitempty"`
	InsertSpaces     *bool `yaml:"insert_spaces,omitempty" json:"insertSpaces,omitempty"`
	TabSize          int   `yaml:"tab_size,omitempty" json:"tabSize,omitempty"`
}

// Validation holds diagnostics settings.
type Validation struct {
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	// NoGrammar is the severity reported for documents without a grammar.
	NoGrammar string `yaml:"no_grammar,omitempty" json:"noGrammar,omitempty"`
}

// Logs holds server logging settings.
type Logs struct {
	Client *bool  `yaml:"client,omitempty" json:"client,omitempty"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Defaults returns the settings used when no file exists.
func Defaults() *Settings {
	return &Settings{
		Version:  DefaultVersion,
		Strategy: StrategyAuto,
	}
}

// applyDefaults fills unset required fields.
func (s *Settings) applyDefaults() {
	if s.Version == "" {
		s.Version = DefaultVersion
	}
	if s.Strategy == "" {
		s.Strategy = StrategyAuto
	}
}

// Validate performs basic validation on Settings.
func (s *Settings) Validate() error {
	if s.Version != "" && s.Version != DefaultVersion && !versionPattern.MatchString(s.Version) {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("invalid version %q (expected %q or a release such as 0.27.1)", s.Version, DefaultVersion),
		}
	}

	if s.Strategy != "" && !s.Strategy.Valid() {
		return &ValidationError{
			Field:   "strategy",
			Message: fmt.Sprintf("unknown strategy %q (expected auto, jar or native)", s.Strategy),
		}
	}

	for i, arg := range s.Java.VMArgs {
		if strings.TrimSpace(arg) == "" {
			return &ValidationError{Field: fmt.Sprintf("java.vmargs[%d]", i), Message: "argument cannot be empty"}
		}
	}

	if len(s.Catalogs) > MaxCatalogCount {
		return &ValidationError{
			Field:   "catalogs",
			Message: fmt.Sprintf("too many catalogs (%d), maximum is %d", len(s.Catalogs), MaxCatalogCount),
		}
	}
	for i, catalog := range s.Catalogs {
		if strings.TrimSpace(catalog) == "" {
			return &ValidationError{Field: fmt.Sprintf("catalogs[%d]", i), Message: "path cannot be empty"}
		}
	}

	if len(s.FileAssociations) > MaxFileAssociationCount {
		return &ValidationError{
			Field:   "file_associations",
			Message: fmt.Sprintf("too many file associations (%d), maximum is %d", len(s.FileAssociations), MaxFileAssociationCount),
		}
	}
	for i, fa := range s.FileAssociations {
		if fa.Pattern == "" {
			return &ValidationError{Field: fmt.Sprintf("file_associations[%d].pattern", i), Message: "pattern cannot be empty"}
		}
		if fa.SystemID == "" {
			return &ValidationError{Field: fmt.Sprintf("file_associations[%d].system_id", i), Message: "system_id cannot be empty"}
		}
	}

	if s.Format.TabSize < 0 || s.Format.TabSize > MaxTabSize {
		return &ValidationError{
			Field:   "format.tab_size",
			Message: fmt.Sprintf("tab size %d out of range 0-%d", s.Format.TabSize, MaxTabSize),
		}
	}

	if s.Validation.NoGrammar != "" && !validSeverity(s.Validation.NoGrammar) {
		return &ValidationError{
			Field:   "validation.no_grammar",
			Message: fmt.Sprintf("unknown severity %q (expected ignore, hint, info, warning or error)", s.Validation.NoGrammar),
		}
	}

	for _, u := range []struct{ field, raw string }{
		{"repository_url", s.RepositoryURL},
		{"release_url", s.ReleaseURL},
	} {
		if u.raw == "" {
			continue
		}
		if err := validateURL(u.raw); err != nil {
			return &ValidationError{Field: u.field, Message: err.Error()}
		}
	}

	for key := range s.Extra {
		if !extraKeyPattern.MatchString(key) {
			return &ValidationError{
				Field:   "extra",
				Message: fmt.Sprintf("invalid setting path %q (expected dotted identifiers such as xml.symbols.enabled)", key),
			}
		}
	}

	return nil
}

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "settings validation failed for " + e.Field + ": " + e.Message
	}
	return "settings validation failed: " + e.Message
}

// versionPattern matches release versions. Versions become path segments so
// separators are rejected.
var versionPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._+-]{0,63}$`)

// extraKeyPattern matches dotted setting paths.
var extraKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*)*$`)

func validSeverity(s string) bool {
	switch s {
	case "ignore", "hint", "info", "warning", "error":
		return true
	default:
		return false
	}
}

// validateURL accepts absolute http(s) URLs.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %s)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}

	return nil
}
