// Package config loads the editor-side settings of the XML language server.
//
// Settings come from a Lua file (xmlls.lua) or a YAML file (xmlls.yaml,
// xmlls.yml). Lua files run in a sandboxed gopher-lua VM with a read-only
// platform table injected by the platform package, so one file can serve
// several machines:
//
//	xmlls = {
//	  version = "latest",
//	  strategy = platform.native and "native" or "jar",
//	  java = { vmargs = { "-Xmx512m" } },
//	  catalogs = { "~/schemas/catalog.xml" },
//	  file_associations = {
//	    { pattern = "**/*.pom", system_id = "https://maven.apache.org/xsd/maven-4.0.0.xsd" },
//	  },
//	  format = { split_attributes = true, tab_size = 2 },
//	  validation = { no_grammar = "hint" },
//	  extra = { ["xml.symbols.enabled"] = false },
//	}
//
// # Sandbox
//
// The VM has no os, io, debug or package libraries and no loaders
// (require, dofile, load...). Metatable access is removed so the platform
// table stays read-only. Evaluation is bounded by a context deadline
// (DefaultParseTimeout when the caller sets none) and files are limited to
// MaxConfigSize bytes.
//
// # Lookup
//
// Loader.Load reads the explicit path, then $XMLLS_CONFIG, then the user
// config dir. A missing default file yields Defaults(). $XMLLS_CACHE_DIR
// overrides cache_dir.
//
// # Errors
//
// Syntax and type problems are reported as *ParseError; semantic problems as
// *ValidationError wrapped in a *ParseError. FormatError strips Lua stack
// traces for display.
package config
