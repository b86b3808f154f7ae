// Package m1k implements a TCP client for the m1k SMU (source-measure unit)
// instrument server.
//
// The wire protocol is plaintext and line-delimited: each request is a command
// keyword followed by space-separated arguments, terminated by a configurable
// terminator (newline by default), and each reply is a single line carrying
// either the requested value or an "ERROR"-prefixed rejection.
//
// Every exchange opens a fresh TCP connection, sends one command, reads one
// reply and closes the connection; there is no persistent session. Transient
// network failures (connection refused, connection reset, I/O timeout) are
// retried with a fixed delay up to a configured attempt count, while server
// rejections are surfaced immediately as *ServerError and never retried.
//
// A Client is safe for concurrent use: each Query owns its connection and the
// configuration is lock-protected. No ordering is guaranteed between
// concurrent queries, and the server is not assumed to serialize overlapping
// sessions; callers that share instrument state across queries should
// serialize them.
package m1k
