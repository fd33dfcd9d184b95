package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Generator generates Lua settings code from Settings.
type Generator struct {
	indent string // Indentation string (default: two spaces)
	now    func() time.Time
}

// NewGenerator creates a new Lua settings generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
		now:    time.Now,
	}
}

// Generate generates Lua code from Settings. The output parses back to the
// same Settings.
func (g *Generator) Generate(s *Settings) (string, error) {
	var buf bytes.Buffer

	buf.WriteString("-- xmlls settings\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(g.now().UTC().Format(time.RFC3339))
	buf.WriteString("\n--\n")
	buf.WriteString("-- The read-only `platform` table describes this machine, e.g.\n")
	buf.WriteString("--   strategy = platform.native and \"native\" or \"jar\",\n\n")

	buf.WriteString(luaGlobalXMLLS + " = {\n")

	g.writeString(&buf, 1, luaFieldVersion, s.Version)
	g.writeString(&buf, 1, luaFieldStrategy, string(s.Strategy))
	g.writeString(&buf, 1, luaFieldCacheDir, s.CacheDir)
	g.writeString(&buf, 1, luaFieldRepositoryURL, s.RepositoryURL)
	g.writeString(&buf, 1, luaFieldReleaseURL, s.ReleaseURL)
	g.writeString(&buf, 1, luaFieldKeyring, s.Keyring)

	if s.Java.Home != "" || len(s.Java.VMArgs) > 0 {
		g.open(&buf, 1, luaFieldJava)
		g.writeString(&buf, 2, luaFieldHome, s.Java.Home)
		g.writeStringList(&buf, 2, luaFieldVMArgs, s.Java.VMArgs)
		g.close(&buf, 1)
	}

	g.writeStringList(&buf, 1, luaFieldCatalogs, s.Catalogs)

	if len(s.FileAssociations) > 0 {
		g.open(&buf, 1, luaFieldFileAssociations)
		for _, fa := range s.FileAssociations {
			buf.WriteString(strings.Repeat(g.indent, 2))
			fmt.Fprintf(&buf, "{ %s = %s, %s = %s },\n",
				luaFieldPattern, g.quoteLuaString(fa.Pattern),
				luaFieldSystemID, g.quoteLuaString(fa.SystemID))
		}
		g.close(&buf, 1)
	}

	f := s.Format
	if f.Enabled != nil || f.SplitAttributes != nil || f.JoinCommentLines != nil || f.InsertSpaces != nil || f.TabSize != 0 {
		g.open(&buf, 1, luaFieldFormat)
		g.writeBool(&buf, 2, luaFieldEnabled, f.Enabled)
		g.writeBool(&buf, 2, luaFieldSplitAttributes, f.SplitAttributes)
		g.writeBool(&buf, 2, luaFieldJoinCommentLines, f.JoinCommentLines)
		g.writeBool(&buf, 2, luaFieldInsertSpaces, f.InsertSpaces)
		if f.TabSize != 0 {
			g.line(&buf, 2, fmt.Sprintf("%s = %d,", luaFieldTabSize, f.TabSize))
		}
		g.close(&buf, 1)
	}

	if s.Validation.Enabled != nil || s.Validation.NoGrammar != "" {
		g.open(&buf, 1, luaFieldValidation)
		g.writeBool(&buf, 2, luaFieldEnabled, s.Validation.Enabled)
		g.writeString(&buf, 2, luaFieldNoGrammar, s.Validation.NoGrammar)
		g.close(&buf, 1)
	}

	if s.Logs.Client != nil || s.Logs.File != "" {
		g.open(&buf, 1, luaFieldLogs)
		g.writeBool(&buf, 2, luaFieldClient, s.Logs.Client)
		g.writeString(&buf, 2, luaFieldFile, s.Logs.File)
		g.close(&buf, 1)
	}

	if len(s.Extra) > 0 {
		g.open(&buf, 1, luaFieldExtra)
		keys := make([]string, 0, len(s.Extra))
		for k := range s.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			value, err := g.luaLiteral(s.Extra[k], 2)
			if err != nil {
				return "", fmt.Errorf("extra %s: %w", k, err)
			}
			g.line(&buf, 2, fmt.Sprintf("[%s] = %s,", g.quoteLuaString(k), value))
		}
		g.close(&buf, 1)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (g *Generator) line(buf *bytes.Buffer, depth int, s string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(s)
	buf.WriteString("\n")
}

func (g *Generator) open(buf *bytes.Buffer, depth int, key string) {
	g.line(buf, depth, key+" = {")
}

func (g *Generator) close(buf *bytes.Buffer, depth int) {
	g.line(buf, depth, "},")
}

func (g *Generator) writeString(buf *bytes.Buffer, depth int, key, value string) {
	if value == "" {
		return
	}
	g.line(buf, depth, key+" = "+g.quoteLuaString(value)+",")
}

func (g *Generator) writeBool(buf *bytes.Buffer, depth int, key string, value *bool) {
	if value == nil {
		return
	}
	g.line(buf, depth, key+" = "+strconv.FormatBool(*value)+",")
}

func (g *Generator) writeStringList(buf *bytes.Buffer, depth int, key string, values []string) {
	if len(values) == 0 {
		return
	}
	g.open(buf, depth, key)
	for _, v := range values {
		g.line(buf, depth+1, g.quoteLuaString(v)+",")
	}
	g.close(buf, depth)
}

// luaLiteral renders an extra value as a Lua expression.
func (g *Generator) luaLiteral(v any, depth int) (string, error) {
	switch val := v.(type) {
	case nil:
		return "nil", nil
	case bool:
		return strconv.FormatBool(val), nil
	case string:
		return g.quoteLuaString(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := g.luaLiteral(item, depth+1)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(val))
		for _, k := range keys {
			s, err := g.luaLiteral(val[k], depth+1)
			if err != nil {
				return "", err
			}
			parts = append(parts, "["+g.quoteLuaString(k)+"] = "+s)
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
