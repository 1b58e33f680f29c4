// Package logging builds slog loggers for the engine and CLI.
//
// It supports console and JSON output, level parsing from config strings,
// multi-destination writers (stdout plus a log file under the configured log
// directory), and context helpers that stamp records with the active audit
// batch and operation name.
package logging
