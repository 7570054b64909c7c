// Package syncerr holds the error types shared by the Plane and Teams clients.
package syncerr

import (
	"errors"
	"fmt"
)

// TransportError reports a failed network exchange: the request could not be
// made, timed out, or the server answered with a non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DataError reports a response that does not have the expected shape.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Transport wraps err into a TransportError
func Transport(op string, status int, err error) error {
	return &TransportError{Op: op, StatusCode: status, Err: err}
}

// Data wraps err into a DataError
func Data(op string, err error) error {
	return &DataError{Op: op, Err: err}
}

// IsTransport reports whether any error in err's chain is a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsData reports whether any error in err's chain is a DataError
func IsData(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
