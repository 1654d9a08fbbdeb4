package core

import (
	"errors"
)

var (
	// ErrMalformedMesh is returned when a parsed asset cannot produce valid
	// geometry. This is a fatal load error: no partial scene entry is kept.
	ErrMalformedMesh = errors.New("malformed mesh asset")
	// ErrGeometryIndex is returned when an instance references a geometry
	// slot that does not exist. Caller contract violation.
	ErrGeometryIndex = errors.New("geometry index out of range")
	ErrUnknown       = errors.New("unknown")
)
