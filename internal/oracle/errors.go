package oracle

import "fmt"

// TransportError wraps a backend failure that survived the transport's retry.
type TransportError struct {
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oracle transport (%s): %v", e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError wraps a response that stayed malformed after a reformat re-prompt.
type ParseError struct {
	Model string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("oracle response parse (%s): %v", e.Model, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
