package m1k

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
)

// lineReader reads one terminator-delimited reply line from a net.Conn.
//
// It implements the framing rule of the m1k wire protocol: a message boundary
// is exactly "bytes up to and including the terminator". The reader
// accumulates chunks until the buffer ends with the terminator sequence, then
// returns the line with the terminator stripped.
//
// The caller is responsible for setting the read deadline on conn before the
// call; a deadline expiry surfaces as an I/O timeout and is classified as
// transient by IsTransientError.
//
// lineReader is goroutine-safe since it holds no per-call state.
type lineReader struct {
	// maxSize bounds the accumulated reply size in bytes; 0 means unbounded.
	maxSize int
}

// ReadLine reads bytes from conn until the accumulated buffer ends with term,
// then returns the buffer without the trailing terminator.
//
// A peer close before the terminator arrives is reported as an unexpected
// EOF, which the error taxonomy treats as a connection reset.
func (lr *lineReader) ReadLine(conn net.Conn, term []byte) ([]byte, error) {
	buf := make([]byte, 0, 256)
	chunk := make([]byte, 256)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			if bytes.HasSuffix(buf, term) {
				return buf[:len(buf)-len(term)], nil
			}

			if lr.maxSize > 0 && len(buf) > lr.maxSize {
				return nil, fmt.Errorf("reply exceeds maximum size %d without terminator", lr.maxSize)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("read reply: %w", err)
		}
	}
}
