// Package logging assembles the structured slog loggers used across reelist.
//
// It owns console/JSON handler construction, level parsing, rotating file
// output, and a no-op logger for tests and wiring code that cannot fail.
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
