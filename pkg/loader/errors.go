package loader

import "errors"

var (
	// ErrInvalidModel is returned when a document does not conform to the
	// program schema or refers to unknown names.
	ErrInvalidModel = errors.New("invalid program model")
	// ErrUnsupportedFormat is returned for documents that are neither JSON
	// nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
