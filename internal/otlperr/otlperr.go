// Package otlperr defines the error-kind taxonomy shared across the
// pipeline, grounded on the teacher's plain fmt.Errorf("...: %w", err)
// wrapping style: no custom exception hierarchy, just enough structure
// that callers can errors.As into a Kind when they need to branch on it.
package otlperr

import "fmt"

// Kind classifies an error without requiring a distinct Go type per kind.
type Kind string

const (
	KindConfig            Kind = "config"
	KindAwsAPI             Kind = "aws_api"
	KindAwsNotFound         Kind = "aws_not_found"
	KindEnvelopeParse       Kind = "envelope_parse"
	KindDecompress          Kind = "decompress"
	KindProtobufInvalid     Kind = "protobuf_invalid"
	KindContentTypeUnsupported Kind = "content_type_unsupported"
	KindForward             Kind = "forward"
	KindFunctionInvocationFailed Kind = "function_invocation_failed"
	KindInterrupted          Kind = "interrupted"
)

// Error wraps an underlying error with a Kind for errors.As-based
// dispatch, and optional diagnostic context (e.g. a resource name or tail
// logs) that callers want attached without parsing the message string.
type Error struct {
	Kind    Kind
	Err     error
	Context string
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind, unless err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Wrap is New plus a context string surfaced alongside the kind, used for
// NotFound-style errors that name the missing resource.
func Wrap(kind Kind, context string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err, Context: context}
}
