// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// probing driver error strings.
package repository

import "errors"

// ErrConflict is returned when an insert loses a race on a unique
// key, such as two workers persisting the same hold at once. Callers
// treat it as a retryable availability conflict.
var ErrConflict = errors.New("conflict")
