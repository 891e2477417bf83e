// Package defaults provides embedded default assets (config, greeting, language table).
package defaults

import _ "embed"

//go:embed default_config.json
var DefaultConfigJSON []byte

//go:embed greeting.md
var Greeting string

//go:embed languages.toml
var LanguagesTOML string
