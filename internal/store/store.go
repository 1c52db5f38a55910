// Package store implements persistence over database/sql. Every task-scoped
// operation is keyed by (id, owner user id); a row that does not exist and a
// row owned by someone else are indistinguishable to callers.
package store

import "errors"

// ErrNotFound is returned when no row matches a scoped lookup. Handlers map
// it to 404 without revealing whether the row exists for another owner.
var ErrNotFound = errors.New("not found")
