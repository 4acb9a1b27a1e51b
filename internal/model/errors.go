package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can map it to a response.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration means the weights file is missing or unreadable, or
	// the runtime could not be set up.
	KindConfiguration
	// KindInput means the caller sent bytes that are not a decodable image.
	KindInput
	// KindModelIncompatibility means the weights do not fit the architecture.
	KindModelIncompatibility
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindInput:
		return "input error"
	case KindModelIncompatibility:
		return "model incompatibility error"
	}
	return "unknown error"
}

var (
	ErrModelNotFound     = errors.New("model file not found")
	ErrModelIncompatible = errors.New("weight-shape mismatch")
	ErrInvalidImage      = errors.New("invalid image data")
	ErrLoaderClosed      = errors.New("model loader closed")
)

// Error carries the kind of a failure together with the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// InputError wraps a decoder failure as an invalid image error.
func InputError(cause error) error {
	return &Error{
		Kind: KindInput,
		Err:  fmt.Errorf("%w: %v", ErrInvalidImage, cause),
	}
}

func errUnknownDevice(name string) error {
	return fmt.Errorf("unknown device %q (want auto, cpu or cuda)", name)
}
