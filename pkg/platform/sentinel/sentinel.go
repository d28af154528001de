// Package sentinel holds the storage facts shared by every store. Stores wrap
// them; services test with errors.Is and decide what the caller sees.
package sentinel

import "errors"

var (
	// ErrNotFound means the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint refused the write.
	ErrConflict = errors.New("conflict")
)
