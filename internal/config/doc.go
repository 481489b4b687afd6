// Package config handles loading and parsing Bastion's client configuration.
//
// # Overview
//
// This package reads Bastion's TOML configuration to discover the launcher
// daemon's API endpoint and the client's data directory. The daemon carries
// its own configuration; this file only covers what the client needs to
// reach it.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/bastion/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/bastion/config.toml
//   - API endpoint: 127.0.0.1:7733
//   - Data directory: ~/.local/share/bastion
//   - Diagnostic log: <data_dir>/bastion.log
//   - UI refresh interval: 500ms
//
// # TOML Format
//
// Example config.toml:
//
//	api_bind = "127.0.0.1:7733"
//	data_dir = "~/.local/share/bastion"
//	poll_interval_ms = 500
//
// All fields are optional. Tilde expansion is performed automatically.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// Missing config files are NOT an error - defaults are used instead. The
// client should work out-of-the-box against a daemon on the default bind.
package config
