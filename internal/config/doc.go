// Package config provides configuration loading, merging, and path
// management for the document wizard engine.
//
// # Configuration Loading
//
// Load implements a layered configuration strategy that merges sources in
// priority order, each overriding the last:
//
//  1. Global config (~/.config/wizard/wizard.jsonc or wizard.yaml)
//  2. Project config (<directory>/.wizard/wizard.jsonc or wizard.yaml)
//  3. A ".env" file in <directory>, loaded with godotenv
//  4. Environment variables (WIZARD_MODEL, WIZARD_LOG_LEVEL, provider API
//     key variables such as ANTHROPIC_API_KEY); an API key variable only
//     fills in a key that no config file set
//
// # Supported Formats
//
// Both JSONC (via tidwall/jsonc) and YAML (via gopkg.in/yaml.v3) are
// accepted; the extension of the discovered file selects the parser.
//
// # Live Reload
//
// Watcher uses fsnotify to watch a project's .wizard directory and re-run
// Load whenever a file matching one of Config.WatchPatterns (matched with
// bmatcuk/doublestar) changes.
//
// # Path Management
//
// Paths follows the XDG Base Directory Specification:
//   - Data: ~/.local/share/wizard (XDG_DATA_HOME)
//   - Config: ~/.config/wizard (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/wizard (XDG_CACHE_HOME)
//   - State: ~/.local/state/wizard (XDG_STATE_HOME)
package config
