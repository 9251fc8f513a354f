package mimetypes

import "fmt"

// ErrInvalidContentType indicates a string that does not parse as "media/sub".
//
// No registry ever holds a type constructed from such a string; the error is
// raised from NewType (or from decoding persisted data) and never coerced.
type ErrInvalidContentType struct {
	ContentType string
}

func (e *ErrInvalidContentType) Error() string {
	return fmt.Sprintf("invalid content type %q", e.ContentType)
}

// ErrInvalidEncoding indicates an encoding token outside the legal set
// (base64, 7bit, 8bit, quoted-printable).
type ErrInvalidEncoding struct {
	Encoding string
}

func (e *ErrInvalidEncoding) Error() string {
	return fmt.Sprintf("invalid encoding %q", e.Encoding)
}

// ErrInvalidSystem indicates a system pattern that does not compile.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidSystem struct {
	Pattern string
	cause   error
}

func (e *ErrInvalidSystem) Error() string {
	return fmt.Sprintf("invalid system pattern %q", e.Pattern)
}

func (e *ErrInvalidSystem) Unwrap() error { return e.cause }
