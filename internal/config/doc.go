// Package config loads and validates the TOML configuration that drives the
// local store, remote client, and sync engine.
//
// Defaults live in defaults.go; Load applies the file on top of them, expands
// paths, and validates the result so the rest of the program can treat the
// Config as trusted input.
package config
