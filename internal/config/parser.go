package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// maxExtraDepth bounds nested tables converted from the extra section.
const maxExtraDepth = 16

// Parser represents a Lua settings parser with platform detection.
type Parser struct {
	detector platform.Detector
	logger   *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLogger sets the parser's logger.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a new settings parser with the given platform detector.
// A nil detector leaves the platform table undefined.
func NewParser(detector platform.Detector, opts ...ParserOption) *Parser {
	p := &Parser{detector: detector, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseString parses Lua settings from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Settings, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "settings file too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ParseError{Message: "settings evaluation timed out", Detail: ctxErr.Error(), Err: ctxErr}
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	settings, err := extractSettings(L)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsed lua settings", "version", settings.Version, "strategy", settings.Strategy)
	return settings, nil
}

// ParseError represents a settings parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// extractSettings reads the global "xmlls" table.
func extractSettings(L *lua.LState) (*Settings, error) {
	root := L.GetGlobal(luaGlobalXMLLS)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'xmlls' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	s := &Settings{}
	var err error
	r := fieldReader{}

	s.Version = r.str(table, luaFieldVersion)
	s.Strategy = Strategy(r.str(table, luaFieldStrategy))
	s.CacheDir = r.str(table, luaFieldCacheDir)
	s.RepositoryURL = r.str(table, luaFieldRepositoryURL)
	s.ReleaseURL = r.str(table, luaFieldReleaseURL)
	s.Keyring = r.str(table, luaFieldKeyring)
	s.Catalogs = r.strList(table, luaFieldCatalogs)

	if java := r.table(table, luaFieldJava); java != nil {
		r.prefix = luaFieldJava + "."
		s.Java.Home = r.str(java, luaFieldHome)
		s.Java.VMArgs = r.strList(java, luaFieldVMArgs)
		r.prefix = ""
	}

	if assoc := r.table(table, luaFieldFileAssociations); assoc != nil {
		s.FileAssociations = r.fileAssociations(assoc)
	}

	if format := r.table(table, luaFieldFormat); format != nil {
		r.prefix = luaFieldFormat + "."
		s.Format.Enabled = r.boolean(format, luaFieldEnabled)
		s.Format.SplitAttributes = r.boolean(format, luaFieldSplitAttributes)
		s.Format.JoinCommentLines = r.boolean(format, luaFieldJoinCommentLines)
		s.Format.InsertSpaces = r.boolean(format, luaFieldInsertSpaces)
		s.Format.TabSize = r.integer(format, luaFieldTabSize)
		r.prefix = ""
	}

	if validation := r.table(table, luaFieldValidation); validation != nil {
		r.prefix = luaFieldValidation + "."
		s.Validation.Enabled = r.boolean(validation, luaFieldEnabled)
		s.Validation.NoGrammar = r.str(validation, luaFieldNoGrammar)
		r.prefix = ""
	}

	if logs := r.table(table, luaFieldLogs); logs != nil {
		r.prefix = luaFieldLogs + "."
		s.Logs.Client = r.boolean(logs, luaFieldClient)
		s.Logs.File = r.str(logs, luaFieldFile)
		r.prefix = ""
	}

	if extra := r.table(table, luaFieldExtra); extra != nil {
		s.Extra, err = extractExtra(extra)
		if err != nil {
			return nil, err
		}
	}

	if r.err != nil {
		return nil, r.err
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, &ParseError{
			Message: "settings validation failed",
			Detail:  err.Error(),
			Err:     err,
		}
	}

	return s, nil
}

// fieldReader reads typed fields, keeping the first type error.
type fieldReader struct {
	prefix string
	err    error
}

func (r *fieldReader) fail(key, want string, got lua.LValue) {
	if r.err != nil {
		return
	}
	r.err = &ParseError{
		Message: "invalid field type",
		Detail:  fmt.Sprintf("%s%s: expected %s, got %s", r.prefix, key, want, got.Type()),
	}
}

func (r *fieldReader) str(t *lua.LTable, key string) string {
	v := t.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return ""
	case lua.LTString:
		return v.String()
	default:
		r.fail(key, "string", v)
		return ""
	}
}

func (r *fieldReader) boolean(t *lua.LTable, key string) *bool {
	v := t.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		b := bool(v.(lua.LBool))
		return &b
	default:
		r.fail(key, "boolean", v)
		return nil
	}
}

func (r *fieldReader) integer(t *lua.LTable, key string) int {
	v := t.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return 0
	case lua.LTNumber:
		n := float64(v.(lua.LNumber))
		if n != math.Trunc(n) {
			r.fail(key, "integer", v)
			return 0
		}
		return int(n)
	default:
		r.fail(key, "integer", v)
		return 0
	}
}

func (r *fieldReader) table(t *lua.LTable, key string) *lua.LTable {
	v := t.RawGetString(key)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTTable:
		return v.(*lua.LTable)
	default:
		r.fail(key, "table", v)
		return nil
	}
}

// strList reads an array of strings. Nil entries from platform conditionals
// (platform.is_linux and "x" or nil) are skipped.
func (r *fieldReader) strList(t *lua.LTable, key string) []string {
	list := r.table(t, key)
	if list == nil {
		return nil
	}

	var out []string
	list.ForEach(func(_, value lua.LValue) {
		switch value.Type() {
		case lua.LTNil:
		case lua.LTString:
			out = append(out, value.String())
		default:
			r.fail(key+"[]", "string", value)
		}
	})
	return out
}

// fileAssociations reads { pattern = ..., system_id = ... } entries.
func (r *fieldReader) fileAssociations(t *lua.LTable) []FileAssociation {
	var out []FileAssociation
	t.ForEach(func(_, value lua.LValue) {
		switch value.Type() {
		case lua.LTNil:
		case lua.LTTable:
			entry := value.(*lua.LTable)
			out = append(out, FileAssociation{
				Pattern:  r.str(entry, luaFieldPattern),
				SystemID: r.str(entry, luaFieldSystemID),
			})
		default:
			r.fail(luaFieldFileAssociations+"[]", "table", value)
		}
	})
	return out
}

// extractExtra converts the extra table into dotted key/value pairs.
func extractExtra(t *lua.LTable) (map[string]any, error) {
	extra := make(map[string]any)
	var err error

	t.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		if key.Type() != lua.LTString {
			err = &ParseError{
				Message: "invalid field type",
				Detail:  fmt.Sprintf("extra: keys must be strings, got %s", key.Type()),
			}
			return
		}

		var v any
		v, err = luaToGo(value, 0)
		if err != nil {
			err = &ParseError{Message: "invalid extra setting", Detail: fmt.Sprintf("%s: %v", key.String(), err)}
			return
		}
		extra[key.String()] = v
	})

	if err != nil {
		return nil, err
	}
	return extra, nil
}

// luaToGo converts a Lua value into JSON-compatible Go values. Tables with
// only consecutive integer keys become slices; others become maps with
// string keys.
func luaToGo(v lua.LValue, depth int) (any, error) {
	if depth > maxExtraDepth {
		return nil, errors.New("tables nested too deeply")
	}

	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTBool:
		return bool(v.(lua.LBool)), nil
	case lua.LTString:
		return v.String(), nil
	case lua.LTNumber:
		n := float64(v.(lua.LNumber))
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), nil
		}
		return n, nil
	case lua.LTTable:
		return tableToGo(v.(*lua.LTable), depth)
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type())
	}
}

func tableToGo(t *lua.LTable, depth int) (any, error) {
	n := t.Len()
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n > 0 && n == count {
		list := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			item, err := luaToGo(t.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	}

	m := make(map[string]any, count)
	var err error
	t.ForEach(func(key, value lua.LValue) {
		if err != nil {
			return
		}
		var item any
		item, err = luaToGo(value, depth+1)
		m[key.String()] = item
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
