package config

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
)

func linuxDetector() platform.Detector {
	return platform.StaticDetector{Info: platform.Info{OS: "linux", Arch: "amd64", ArchRaw: "x86_64", Platform: "ubuntu", Family: "debian"}}
}

func riscvDetector() platform.Detector {
	return platform.StaticDetector{Info: platform.Info{OS: "linux", Arch: "riscv64", ArchRaw: "riscv64"}}
}

func TestParser_ParseString(t *testing.T) {
	code := `
xmlls = {
  version = "0.27.1",
  strategy = "jar",
  cache_dir = "~/cache/xmlls",
  java = {
    home = "/opt/jdk",
    vmargs = { "-Xmx512m", "-Dfile.encoding=UTF-8" },
  },
  catalogs = { "~/catalog.xml" },
  file_associations = {
    { pattern = "**/*.pom", system_id = "https://maven.apache.org/xsd/maven-4.0.0.xsd" },
  },
  format = { enabled = true, split_attributes = false, tab_size = 4 },
  validation = { enabled = true, no_grammar = "ignore" },
  logs = { client = false, file = "/tmp/lemminx.log" },
  keyring = "~/.config/xmlls/lemminx.asc",
  extra = {
    ["xml.symbols.enabled"] = false,
    ["xml.format.maxLineWidth"] = 120,
    ["xml.preferences.quoteStyle"] = "single",
  },
}
`
	s, err := NewParser(nil).ParseString(context.Background(), code)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if s.Version != "0.27.1" || s.Strategy != StrategyJar {
		t.Errorf("version/strategy = %q/%q", s.Version, s.Strategy)
	}
	if s.CacheDir != "~/cache/xmlls" {
		t.Errorf("CacheDir = %q", s.CacheDir)
	}
	if s.Java.Home != "/opt/jdk" || len(s.Java.VMArgs) != 2 || s.Java.VMArgs[1] != "-Dfile.encoding=UTF-8" {
		t.Errorf("Java = %+v", s.Java)
	}
	if len(s.Catalogs) != 1 || s.Catalogs[0] != "~/catalog.xml" {
		t.Errorf("Catalogs = %v", s.Catalogs)
	}
	if len(s.FileAssociations) != 1 || s.FileAssociations[0].Pattern != "**/*.pom" {
		t.Errorf("FileAssociations = %+v", s.FileAssociations)
	}
	if s.Format.Enabled == nil || !*s.Format.Enabled {
		t.Errorf("Format.Enabled = %v", s.Format.Enabled)
	}
	if s.Format.SplitAttributes == nil || *s.Format.SplitAttributes {
		t.Errorf("Format.SplitAttributes = %v", s.Format.SplitAttributes)
	}
	if s.Format.JoinCommentLines != nil {
		t.Errorf("unset Format.JoinCommentLines should stay nil")
	}
	if s.Format.TabSize != 4 {
		t.Errorf("Format.TabSize = %d", s.Format.TabSize)
	}
	if s.Validation.NoGrammar != "ignore" {
		t.Errorf("Validation.NoGrammar = %q", s.Validation.NoGrammar)
	}
	if s.Logs.Client == nil || *s.Logs.Client || s.Logs.File != "/tmp/lemminx.log" {
		t.Errorf("Logs = %+v", s.Logs)
	}
	if s.Extra["xml.symbols.enabled"] != false {
		t.Errorf("extra bool = %#v", s.Extra["xml.symbols.enabled"])
	}
	if s.Extra["xml.format.maxLineWidth"] != int64(120) {
		t.Errorf("extra number = %#v", s.Extra["xml.format.maxLineWidth"])
	}
	if s.Extra["xml.preferences.quoteStyle"] != "single" {
		t.Errorf("extra string = %#v", s.Extra["xml.preferences.quoteStyle"])
	}
}

func TestParser_Defaults(t *testing.T) {
	s, err := NewParser(nil).ParseString(context.Background(), `xmlls = {}`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if s.Version != DefaultVersion {
		t.Errorf("Version = %q, want %q", s.Version, DefaultVersion)
	}
	if s.Strategy != StrategyAuto {
		t.Errorf("Strategy = %q, want auto", s.Strategy)
	}
}

func TestParser_PlatformConditionals(t *testing.T) {
	code := `
xmlls = {
  strategy = platform.native and "native" or "jar",
  java = {
    vmargs = {
      "-Xmx256m",
      platform.is_macos and "-XstartOnFirstThread" or nil,
      platform.distro and platform.distro.family == "debian" and "-Ddebian=true" or nil,
    },
  },
}
`
	tests := []struct {
		name     string
		detector platform.Detector
		strategy Strategy
		vmargs   []string
	}{
		{
			name:     "supported linux",
			detector: linuxDetector(),
			strategy: StrategyNative,
			vmargs:   []string{"-Xmx256m", "-Ddebian=true"},
		},
		{
			name:     "unsupported arch",
			detector: riscvDetector(),
			strategy: StrategyJar,
			vmargs:   []string{"-Xmx256m"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewParser(tt.detector).ParseString(context.Background(), code)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if s.Strategy != tt.strategy {
				t.Errorf("Strategy = %q, want %q", s.Strategy, tt.strategy)
			}
			if strings.Join(s.Java.VMArgs, " ") != strings.Join(tt.vmargs, " ") {
				t.Errorf("VMArgs = %v, want %v", s.Java.VMArgs, tt.vmargs)
			}
		})
	}
}

func TestParser_NestedExtra(t *testing.T) {
	code := `
xmlls = {
  extra = {
    ["xml.completion.paths"] = {
      { pattern = "**/*.xml", values = { "a", "b" } },
    },
    ["xml.ratio"] = 0.5,
  },
}
`
	s, err := NewParser(nil).ParseString(context.Background(), code)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	paths, ok := s.Extra["xml.completion.paths"].([]any)
	if !ok || len(paths) != 1 {
		t.Fatalf("paths = %#v", s.Extra["xml.completion.paths"])
	}
	entry, ok := paths[0].(map[string]any)
	if !ok || entry["pattern"] != "**/*.xml" {
		t.Fatalf("entry = %#v", paths[0])
	}
	values, ok := entry["values"].([]any)
	if !ok || len(values) != 2 || values[1] != "b" {
		t.Errorf("values = %#v", entry["values"])
	}
	if s.Extra["xml.ratio"] != 0.5 {
		t.Errorf("ratio = %#v", s.Extra["xml.ratio"])
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		errText string
	}{
		{name: "syntax error", code: `xmlls = {`, errText: "Lua syntax error"},
		{name: "missing table", code: `settings = {}`, errText: "missing or invalid 'xmlls' table"},
		{name: "table not a table", code: `xmlls = "jar"`, errText: "expected table, got string"},
		{name: "wrong version type", code: `xmlls = { version = 1 }`, errText: "version: expected string, got number"},
		{name: "wrong nested type", code: `xmlls = { format = { enabled = "yes" } }`, errText: "format.enabled: expected boolean"},
		{name: "fractional tab size", code: `xmlls = { format = { tab_size = 2.5 } }`, errText: "format.tab_size: expected integer"},
		{name: "bad list item", code: `xmlls = { catalogs = { 1 } }`, errText: "catalogs[]: expected string"},
		{name: "invalid strategy", code: `xmlls = { strategy = "wasm" }`, errText: "unknown strategy"},
		{name: "non-string extra key", code: `xmlls = { extra = { true } }`, errText: "keys must be strings"},
		{name: "function in extra", code: `xmlls = { extra = { ["xml.f"] = print } }`, errText: "unsupported value type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.code)
			if err == nil {
				t.Fatal("expected error but got none")
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errText)
			}
		})
	}
}

func TestParser_ValidationErrorUnwraps(t *testing.T) {
	_, err := NewParser(nil).ParseString(context.Background(), `xmlls = { validation = { no_grammar = "loud" } }`)

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError in chain, got %v", err)
	}
	if validationErr.Field != "validation.no_grammar" {
		t.Errorf("Field = %q", validationErr.Field)
	}
}

func TestParser_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestParser_SizeLimit(t *testing.T) {
	code := "xmlls = {}\n-- " + strings.Repeat("x", MaxConfigSize)
	_, err := NewParser(nil).ParseString(context.Background(), code)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua syntax error", Detail: "line 1: unexpected EOF\nstack traceback:\n\t[G]: ?"}

	if got := FormatError(err, false); got != "Lua syntax error: line 1: unexpected EOF" {
		t.Errorf("FormatError(false) = %q", got)
	}
	if got := FormatError(err, true); !strings.Contains(got, "stack traceback") {
		t.Errorf("FormatError(true) = %q, want details", got)
	}
	if got := FormatError(errors.New("plain"), false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
