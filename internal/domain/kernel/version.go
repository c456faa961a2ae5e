package kernel

import "github.com/go-faster/errors"

// ErrVersionConflict is returned by conditional writes that matched zero
// rows: a concurrent writer already changed the row. The caller must abort
// the whole unit of work; retrying means reloading and recomputing, never
// resubmitting the stale token.
var ErrVersionConflict = errors.New("version conflict")

// Version is the opaque optimistic-concurrency token attached to every
// persisted aggregate row. Conditional updates include the last-known value
// in their WHERE clause; zero matched rows means another writer got there
// first. Callers never inspect or compute with the token, they only carry it
// between a read and the following conditional write.
type Version int64

// InitialVersion is the token assigned to freshly inserted rows.
const InitialVersion Version = 1
