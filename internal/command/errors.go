package command

import "fmt"

// ValidationError is an expected handler failure: bad arguments, unknown
// target, duplicate entry. Its message is short, non-technical and shown to
// the invoking user as-is. Anything else a handler returns is treated as an
// unexpected failure and never reaches the chat transcript.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// Validationf builds a user-visible ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Usage is a ValidationError describing the expected argument shape.
func Usage(usage string) error {
	return &ValidationError{msg: "Usage: " + usage}
}
