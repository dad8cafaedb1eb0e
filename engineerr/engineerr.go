// Package engineerr defines the error kinds the columnstore core raises
// (spec §7). Each kind wraps an underlying cause and the file/phase the
// failure occurred in, so the host transaction can log a precise message
// without the engine ever retrying on its own.
package engineerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	IoFailure          Kind = "io_failure"
	CacheFailure       Kind = "cache_failure"
	MetadataFailure    Kind = "metadata_failure"
	LakeFailure        Kind = "lake_failure"
	InvariantViolation Kind = "invariant_violation"
)

// Phase identifies where in a file's lifecycle an error occurred.
type Phase string

const (
	PhaseAppend   Phase = "append"
	PhaseFlush    Phase = "flush"
	PhaseFinalize Phase = "finalize"
	PhaseRegister Phase = "register"
	PhaseApply    Phase = "apply"
	PhaseFetch    Phase = "fetch"
	PhasePersist  Phase = "persist"
	PhaseScan     Phase = "scan"
)

// Error is the engine's single error type; all five error kinds from spec §7
// are represented by its Kind field rather than by distinct Go types, so
// callers can use errors.As with a *engineerr.Error target (or Is) uniformly.
type Error struct {
	Kind     Kind
	Phase    Phase
	FileName string
	Err      error
}

func (e *Error) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("%s during %s: %v", e.Kind, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s during %s of %q: %v", e.Kind, e.Phase, e.FileName, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, phase Phase, fileName string, err error) *Error {
	return &Error{Kind: kind, Phase: phase, FileName: fileName, Err: err}
}

func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
