// Package logging provides the slog-backed logging facility used across
// agenthub. Log calls carry a subsystem tag so output from the OAuth
// manager, the tool resolver, and the HTTP server can be filtered apart.
package logging
