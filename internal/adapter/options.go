package adapter

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ZebulonRouseFrantzich/xmlls/internal/config"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// settingsPrefix roots the server settings inside the initialization options.
const settingsPrefix = "settings."

// optionsBuilder sets dotted paths on a JSON document, keeping the first error.
type optionsBuilder struct {
	doc string
	err error
}

func (b *optionsBuilder) set(path string, value any) {
	if b.err != nil {
		return
	}
	doc, err := sjson.Set(b.doc, settingsPrefix+path, value)
	if err != nil {
		b.err = fmt.Errorf("set %s: %w", path, err)
		return
	}
	b.doc = doc
}

func (b *optionsBuilder) setBool(path string, value *bool) {
	if value != nil {
		b.set(path, *value)
	}
}

func (b *optionsBuilder) setString(path, value string) {
	if value != "" {
		b.set(path, value)
	}
}

// InitializationOptions returns the initializationOptions sent to the server.
// Typed settings are written first and extra entries last, so an extra entry
// for the same path wins.
func (a *Adapter) InitializationOptions() (json.RawMessage, error) {
	s := a.settings
	b := &optionsBuilder{doc: "{}"}

	b.set("xml.server.workDir", a.WorkDir())

	if len(s.Catalogs) > 0 {
		catalogs := make([]string, len(s.Catalogs))
		for i, c := range s.Catalogs {
			catalogs[i] = config.ExpandHome(c)
		}
		b.set("xml.catalogs", catalogs)
	}
	if len(s.FileAssociations) > 0 {
		b.set("xml.fileAssociations", s.FileAssociations)
	}

	b.setBool("xml.format.enabled", s.Format.Enabled)
	b.setBool("xml.format.splitAttributes", s.Format.SplitAttributes)
	b.setBool("xml.format.joinCommentLines", s.Format.JoinCommentLines)
	b.setBool("xml.format.insertSpaces", s.Format.InsertSpaces)
	if s.Format.TabSize > 0 {
		b.set("xml.format.tabSize", s.Format.TabSize)
	}

	b.setBool("xml.validation.enabled", s.Validation.Enabled)
	b.setString("xml.validation.noGrammar", s.Validation.NoGrammar)

	b.setBool("xml.logs.client", s.Logs.Client)
	b.setString("xml.logs.file", config.ExpandHome(s.Logs.File))

	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.set(k, s.Extra[k])
	}

	if b.err != nil {
		return nil, fmt.Errorf("build initialization options: %w", b.err)
	}
	return json.RawMessage(b.doc), nil
}

// Setting returns the value at a dotted server setting path, such as
// "xml.format.tabSize", as sent in the initialization options.
func (a *Adapter) Setting(path string) (gjson.Result, error) {
	opts, err := a.InitializationOptions()
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(opts, settingsPrefix+path), nil
}
