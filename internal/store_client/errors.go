package store_client

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by Fetch for unknown keys
var ErrRecordNotFound = errors.New("record not found")

// ErrorKind tells network failures apart from store rejections
type ErrorKind string

const (
	KindNetwork  ErrorKind = "network"  // request never got a response
	KindStatus   ErrorKind = "status"   // store answered with a non-2xx status
	KindEncoding ErrorKind = "encoding" // request or response body could not be (de)serialized
)

// SubmissionError reports a failed exchange with the store
type SubmissionError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: store returned status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is a SubmissionError caused by the transport
func IsNetworkError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se) && se.Kind == KindNetwork
}

// IsStatusError reports whether err is a SubmissionError caused by a non-2xx response
func IsStatusError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se) && se.Kind == KindStatus
}
