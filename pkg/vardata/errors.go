package vardata

import "errors"

// ErrOverwriteConflict is returned when a finalized link would be replaced
// by an incompatible one.
var ErrOverwriteConflict = errors.New("overwrite conflict")
