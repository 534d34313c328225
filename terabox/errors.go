package terabox

import "errors"

var (
	ErrMissingInput = errors.New("url is required")
	// ErrIncomplete wraps streamurl.ErrIncompleteParameters.
	ErrIncomplete = errors.New("could not extract required parameters from the share link")
)

// IncompleteError carries the parameters that could not be resolved.
type IncompleteError struct {
	Missing []string
	Err     error
}

func (e *IncompleteError) Error() string {
	return ErrIncomplete.Error() + ": " + e.Err.Error()
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

func (e *IncompleteError) Unwrap() error {
	return e.Err
}

// InternalError is any failure of the browser side of a resolution.
type InternalError struct {
	Stage string
	Err   error
}

func (e *InternalError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
