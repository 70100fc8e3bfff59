package link

import "errors"

// ErrInvalidLV is returned when a link value cannot be parsed or built.
var ErrInvalidLV = errors.New("invalid link value")
