package graphlet

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrFormat          = errors.New("malformed graphlet encoding")
	ErrBadEdge         = errors.New("bad edge: expected a u,v pair")
	ErrBadGenerator    = errors.New("bad symmetry generator")
	ErrBadNodeID       = errors.New("bad node ID")
	ErrMissingSentinel = errors.New("missing '*' sentinel")
	ErrBadCatalogParam = errors.New("bad catalog param")
	ErrCatalogVersion  = errors.New("catalog version is incompatible")
	ErrNilGraph        = errors.New("nil graph")
	ErrBadConfig       = errors.New("bad config")
)

// FormatError reports a malformed library line, compressed file line or generator group.
// It matches ErrFormat as well as its Kind (e.g. ErrBadEdge) under errors.Is.
type FormatError struct {
	Line int   // one-based line number, 0 if unknown
	Kind error // ErrBadEdge, ErrBadGenerator, ErrMissingSentinel, ..
	Msg  string
}

func (e *FormatError) Error() string {
	kind := ErrFormat
	if e.Kind != nil {
		kind = e.Kind
	}
	switch {
	case e.Line > 0 && e.Msg != "":
		return fmt.Sprintf("line %d: %v: %s", e.Line, kind, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, kind)
	case e.Msg != "":
		return fmt.Sprintf("%v: %s", kind, e.Msg)
	}
	return kind.Error()
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func (e *FormatError) Unwrap() error {
	return e.Kind
}

// AtLine returns err with its line number set if err is a *FormatError without one.
func AtLine(err error, line int) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Line == 0 {
		dup := *fe
		dup.Line = line
		return &dup
	}
	return err
}
