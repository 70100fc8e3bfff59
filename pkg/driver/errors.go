package driver

import "errors"

// ErrCanceled is returned when the context ends before every component has
// been analyzed. The partial report is returned alongside it.
var ErrCanceled = errors.New("analysis canceled")
