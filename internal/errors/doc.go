// Package errors provides structured, coded errors for swapkit.
//
// Every error that crosses a package boundary carries a stable code
// (e.g. "E001") and a category. Codes are registered in registry.go so
// messages, details and suggestions stay consistent across the codebase.
//
// Usage:
//
//	return errors.New(errors.CodeUnsupportedWatchConfig).
//	    WithDetail("fields resolve to delays 100ms and 250ms")
//
// Errors support errors.Is/As through Unwrap.
package errors
