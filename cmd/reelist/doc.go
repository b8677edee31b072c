// Package main hosts the reelist CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// engine mutations, local store queries, and configuration scaffolding.
// Configuration resolution happens once per process; subcommands get a
// wired store, remote client, and sync engine through the shared
// command context.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main
