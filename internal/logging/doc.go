// Package logging assembles structured slog loggers and attribute helpers used
// by the grocery server, the offline client, and the CLI.
//
// It owns level parsing and the console/JSON handler choice, and provides a
// no-op logger for tests and wiring code that cannot fail. Prefer these
// constructors over hand-rolled slog setup so every component emits the same
// field shape.
package logging
