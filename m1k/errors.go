package m1k

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// serverErrorPrefix is the sentinel the server places at the start of a reply
// to a semantically rejected command.
const serverErrorPrefix = "ERROR"

var (
	// ErrClientConfigNil indicates that a nil ClientConfig was provided.
	ErrClientConfigNil = errors.New("client config is nil")

	// ErrRetriesExhausted indicates that all query attempts failed with
	// transient network errors. It wraps the last underlying cause.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ServerError indicates that the server understood and rejected a command.
// The reply carried the "ERROR" sentinel prefix; the full reply text is
// preserved in Response. Server errors are never retried.
type ServerError struct {
	// Response is the complete reply line, including the sentinel prefix.
	Response string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected command: %s", e.Response)
}

// IsServerError reports whether err is or wraps a *ServerError.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsTransientError reports whether err belongs to the transient network
// failure class: connection refused, connection reset or an I/O timeout.
// A peer closing the connection before the reply terminator arrives is
// treated as a reset.
//
// Transient errors are assumed recoverable by retrying the whole exchange.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return false
}
