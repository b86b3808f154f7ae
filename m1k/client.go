package m1k

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jmball/go-m1k/internal/pool"
	"github.com/jmball/go-m1k/logger"
)

// Client is the transport client for the m1k SMU server.
//
// Each Query opens a fresh TCP connection, performs exactly one
// request-response exchange and closes the connection. The client holds no
// state across calls beyond its configuration and metrics, and is safe for
// concurrent use.
type Client struct {
	cfg     *ClientConfig
	logger  logger.Logger
	reader  lineReader
	metrics ClientMetrics

	// sleep waits out the retry delay; overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from cfg and pushes the configured power line
// frequency to the server with a "plf" command.
//
// Construction fails if that initial query ultimately fails, after the
// configured retry behavior has run its course.
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrClientConfigNil
	}

	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger(),
		reader: lineReader{maxSize: cfg.MaxResponseSize()},
		sleep:  pool.Sleep,
	}

	if _, err := c.Query(ctx, "plf "+formatFloatArg(cfg.LineFrequency())); err != nil {
		return nil, fmt.Errorf("push power line frequency: %w", err)
	}

	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.cfg
}

// Metrics returns the client metrics.
func (c *Client) Metrics() *ClientMetrics {
	return &c.metrics
}

// Terminator returns the current message terminator.
func (c *Client) Terminator() string {
	return c.cfg.Terminator()
}

// SetTerminator changes the message terminator for subsequent queries.
// A query already in flight keeps the terminator captured at its start.
func (c *Client) SetTerminator(term string) error {
	return c.cfg.SetTerminator(term)
}

// attemptOutcome tags the result of one query attempt so the retry loop is an
// explicit branch rather than error-driven control flow.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeServerError
	outcomeTransient
	outcomeFatal
)

func classifyAttempt(err error) attemptOutcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case IsServerError(err):
		return outcomeServerError
	case IsTransientError(err):
		return outcomeTransient
	default:
		return outcomeFatal
	}
}

// Query sends msg to the server and returns the reply line with the
// terminator stripped.
//
// The exchange is attempted up to the configured retry count. A transient
// network error (connection refused, connection reset, I/O timeout) on any
// attempt before the last logs a warning and waits out the retry delay before
// the next attempt; when all attempts are exhausted the last cause is
// returned wrapped in ErrRetriesExhausted. A reply carrying the "ERROR"
// sentinel fails immediately with a *ServerError and is never retried.
//
// Exactly one of success, *ServerError or exhausted-retries failure occurs
// per call. Cancelling ctx aborts the current attempt or retry wait.
func (c *Client) Query(ctx context.Context, msg string) (string, error) {
	// Capture the framing parameters at call start; a concurrent terminator
	// change must not affect a call already in flight.
	term := c.cfg.TerminatorBytes()
	timeout := c.cfg.Timeout()
	retries := c.cfg.Retries()
	delay := c.cfg.RetryDelay()

	payload := make([]byte, 0, len(msg)+len(term))
	payload = append(payload, msg...)
	payload = append(payload, term...)

	c.metrics.incQueryCount()
	c.metrics.incInflightGauge()
	defer c.metrics.decInflightGauge()

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		resp, err := c.exchange(ctx, payload, term, timeout)

		switch classifyAttempt(err) {
		case outcomeSuccess:
			return resp, nil

		case outcomeServerError:
			c.metrics.incServerErrCount()
			return "", err

		case outcomeFatal:
			return "", err

		case outcomeTransient:
			c.metrics.incTransientErrCount()
			lastErr = err
		}

		if attempt == retries {
			// last attempt: escalate instead of retrying
			break
		}

		c.logger.Warn("server probably down, retrying",
			"attempt", attempt,
			"retries", retries,
			"delay", delay,
			"error", lastErr,
		)
		c.metrics.incRetryCount()

		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, retries, lastErr)
}

// exchange performs one connect-send-receive cycle. The connection never
// outlives the attempt, on any exit path.
func (c *Client) exchange(ctx context.Context, payload []byte, term []byte, timeout time.Duration) (string, error) {
	address := net.JoinHostPort(c.cfg.Host(), strconv.Itoa(c.cfg.Port()))
	dialer := &net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close()

	c.logger.Debug("connected to the server",
		"address", address,
		"local_addr", conn.LocalAddr().String(),
		"method", "exchange",
	)

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write(payload); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	line, err := c.reader.ReadLine(conn, term)
	if err != nil {
		return "", err
	}

	resp := string(line)
	if strings.HasPrefix(resp, serverErrorPrefix) {
		return "", &ServerError{Response: resp}
	}

	return resp, nil
}
