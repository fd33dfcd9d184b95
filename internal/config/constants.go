package config

import "time"

// DefaultVersion tracks the newest upstream release.
const DefaultVersion = "latest"

// Limits applied to settings files.
const (
	MaxConfigSize           = 1 << 20
	MaxCatalogCount         = 100
	MaxFileAssociationCount = 500
	MaxTabSize              = 32
	DefaultParseTimeout     = 5 * time.Second
)

// Lua schema field names and globals
const (
	luaGlobalXMLLS           = "xmlls"
	luaFieldVersion          = "version"
	luaFieldStrategy         = "strategy"
	luaFieldCacheDir         = "cache_dir"
	luaFieldJava             = "java"
	luaFieldHome             = "home"
	luaFieldVMArgs           = "vmargs"
	luaFieldCatalogs         = "catalogs"
	luaFieldFileAssociations = "file_associations"
	luaFieldPattern          = "pattern"
	luaFieldSystemID         = "system_id"
	luaFieldFormat           = "format"
	luaFieldEnabled          = "enabled"
	luaFieldSplitAttributes  = "split_attributes"
	luaFieldJoinCommentLines = "join_comment_lines"
	luaFieldInsertSpaces     = "insert_spaces"
	luaFieldTabSize          = "tab_size"
	luaFieldValidation       = "validation"
	luaFieldNoGrammar        = "no_grammar"
	luaFieldLogs             = "logs"
	luaFieldClient           = "client"
	luaFieldFile             = "file"
	luaFieldRepositoryURL    = "repository_url"
	luaFieldReleaseURL       = "release_url"
	luaFieldKeyring          = "keyring"
	luaFieldExtra            = "extra"
)
