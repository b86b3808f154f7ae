package m1k

import (
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jmball/go-m1k/logger"
)

// ClientConfig represents the configuration parameters for an m1k client.
//
// All parameters are fixed after construction except the terminator, which
// may be changed at runtime with SetTerminator. A query captures the
// terminator at its start, so a runtime change affects only subsequent calls.
type ClientConfig struct {
	mu sync.RWMutex

	// host specifies the host of the m1k server.
	host string

	// port specifies the TCP port number of the m1k server.
	port int

	// terminator is the byte sequence marking the end of one protocol message
	// on the wire, in both directions.
	// Defaults to "\n".
	terminator string

	// terminatorBytes caches the byte encoding of terminator used for framing.
	// It is updated together with terminator and never diverges from it.
	terminatorBytes []byte

	// timeout bounds the connect, send and receive phases of each query
	// attempt.
	// Defaults to 30 seconds.
	timeout time.Duration

	// retries defines the total number of attempts a query makes before
	// giving up on transient network errors.
	// Defaults to 3.
	retries int

	// retryDelay defines the fixed delay between query attempts.
	// Defaults to 5 seconds.
	retryDelay time.Duration

	// lineFrequency is the power line frequency (Hz) pushed to the server
	// when the client is constructed.
	// Defaults to 50.
	lineFrequency float64

	// maxResponseSize bounds the size of a reply line in bytes.
	// Defaults to 16 MiB.
	maxResponseSize int

	// logger provides a logger instance for logging client events and errors.
	logger logger.Logger
}

const defaultMaxResponseSize = 16 << 20

// NewClientConfig creates a new client configuration with the given host,
// port number and optional functional options.
//
// It initializes a ClientConfig struct with default values and then applies
// the provided options to customize the configuration.
//
// Returns a pointer to the initialized ClientConfig and an error if any
// occurred during the configuration process.
func NewClientConfig(host string, port int, opts ...ClientOption) (*ClientConfig, error) {
	cfg := &ClientConfig{
		terminator:      "\n",
		terminatorBytes: []byte("\n"),
		timeout:         30 * time.Second,
		retries:         3,
		retryDelay:      5 * time.Second,
		lineFrequency:   50,
		maxResponseSize: defaultMaxResponseSize,
		logger:          logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the host of the m1k server.
func (cfg *ClientConfig) Host() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.host
}

// Port returns the TCP port number of the m1k server.
func (cfg *ClientConfig) Port() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.port
}

// Terminator returns the message terminator string.
func (cfg *ClientConfig) Terminator() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.terminator
}

// TerminatorBytes returns a copy of the byte-encoded terminator used for
// framing.
func (cfg *ClientConfig) TerminatorBytes() []byte {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	term := make([]byte, len(cfg.terminatorBytes))
	copy(term, cfg.terminatorBytes)

	return term
}

// SetTerminator changes the message terminator at runtime and keeps the
// cached byte encoding consistent with it. A query already in flight keeps
// the terminator captured at its start.
//
// An error is returned if the terminator is empty.
func (cfg *ClientConfig) SetTerminator(term string) error {
	if term == "" {
		return errors.New("terminator must not be empty")
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	cfg.terminator = term
	cfg.terminatorBytes = []byte(term)

	return nil
}

// Timeout returns the I/O timeout applied to each query attempt.
func (cfg *ClientConfig) Timeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.timeout
}

// Retries returns the total number of attempts a query makes.
func (cfg *ClientConfig) Retries() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.retries
}

// RetryDelay returns the fixed delay between query attempts.
func (cfg *ClientConfig) RetryDelay() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.retryDelay
}

// LineFrequency returns the power line frequency (Hz) pushed at construction.
func (cfg *ClientConfig) LineFrequency() float64 {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.lineFrequency
}

// MaxResponseSize returns the maximum allowed reply line size in bytes.
func (cfg *ClientConfig) MaxResponseSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.maxResponseSize
}

// Logger returns the logger instance used by the client.
func (cfg *ClientConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// ClientOption represents a functional option for configuring a ClientConfig.
type ClientOption interface {
	apply(*ClientConfig) error
}

type clientOptFunc struct {
	name      string
	applyFunc func(*ClientConfig) error
}

func (c *clientOptFunc) apply(cfg *ClientConfig) error { return c.applyFunc(cfg) }

func newClientOptFunc(name string, f func(*ClientConfig) error) *clientOptFunc {
	return &clientOptFunc{
		name:      name,
		applyFunc: f,
	}
}

// withHost sets the host of the m1k server.
// It returns a ClientOption that validates the host and updates the configuration.
// An error is returned if the configuration is nil.
func withHost(host string) ClientOption {
	return newClientOptFunc("withHost", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		// Check if it's a valid IP address
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		// If not an IP, check if it's a valid domain name
		host = strings.TrimPrefix(host, ".")
		host = strings.TrimSuffix(host, ".")
		if _, err := net.LookupHost(host); err == nil {
			cfg.host = host
			return nil
		}

		return errors.New("invalid host")
	})
}

// withPort sets the TCP port number of the m1k server.
// It returns a ClientOption that validates the port number and updates the configuration.
// An error is returned if the port number is out of the valid range (1-65535) or if the configuration is nil.
func withPort(port int) ClientOption {
	return newClientOptFunc("withPort", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if port < 0 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithTerminator sets the message terminator for the wire protocol.
// It returns a ClientOption that validates the terminator and updates the configuration.
// An error is returned if the terminator is empty or if the configuration is nil.
//
// The default value is "\n".
//
// The terminator can also be changed at runtime with SetTerminator.
func WithTerminator(term string) ClientOption {
	return newClientOptFunc("WithTerminator", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if term == "" {
			return errors.New("terminator must not be empty")
		}
		cfg.terminator = term
		cfg.terminatorBytes = []byte(term)

		return nil
	})
}

// WithTimeout sets the I/O timeout applied to the connect, send and receive
// phases of each query attempt.
// It returns a ClientOption that validates the timeout value and updates the configuration.
// An error is returned if the timeout is outside the valid range (0.01-600 seconds) or if the configuration is nil.
//
// The default value is 30 seconds.
func WithTimeout(val time.Duration) ClientOption {
	return newClientOptFunc("WithTimeout", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if val < 10*time.Millisecond || val > 600*time.Second {
			return errors.New("timeout out of range [0.01, 600]")
		}
		cfg.timeout = val

		return nil
	})
}

// WithRetries sets the total number of attempts a query makes before giving
// up on transient network errors. A value of 1 disables retrying.
// It returns a ClientOption that validates the count and updates the configuration.
// An error is returned if the count is outside the valid range (1-100) or if the configuration is nil.
//
// The default value is 3.
func WithRetries(count int) ClientOption {
	return newClientOptFunc("WithRetries", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if count < 1 || count > 100 {
			return errors.New("retries out of range [1, 100]")
		}
		cfg.retries = count

		return nil
	})
}

// WithRetryDelay sets the fixed delay between query attempts.
// It returns a ClientOption that validates the delay and updates the configuration.
// An error is returned if the delay is negative, exceeds 600 seconds, or if the configuration is nil.
//
// The default value is 5 seconds.
func WithRetryDelay(val time.Duration) ClientOption {
	return newClientOptFunc("WithRetryDelay", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if val < 0 || val > 600*time.Second {
			return errors.New("retry delay out of range [0, 600]")
		}
		cfg.retryDelay = val

		return nil
	})
}

// WithLineFrequency sets the power line frequency (Hz) the client pushes to
// the server at construction time.
// It returns a ClientOption that validates the frequency and updates the configuration.
// An error is returned if the frequency is not positive or if the configuration is nil.
//
// The default value is 50.
func WithLineFrequency(hz float64) ClientOption {
	return newClientOptFunc("WithLineFrequency", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if hz <= 0 {
			return errors.New("line frequency must be positive")
		}
		cfg.lineFrequency = hz

		return nil
	})
}

// WithMaxResponseSize bounds the size of a reply line in bytes. A reply that
// grows past this bound without a terminator fails the query.
// It returns a ClientOption that validates the size and updates the configuration.
// An error is returned if the size is not positive or if the configuration is nil.
//
// The default value is 16 MiB.
func WithMaxResponseSize(size int) ClientOption {
	return newClientOptFunc("WithMaxResponseSize", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		if size <= 0 {
			return errors.New("max response size must be positive")
		}
		cfg.maxResponseSize = size

		return nil
	})
}

// WithLogger sets the logger for the client.
// It returns a ClientOption that updates the configuration with the provided logger.
// An error is returned if the configuration is nil.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) ClientOption {
	return newClientOptFunc("WithLogger", func(cfg *ClientConfig) error {
		if cfg == nil {
			return ErrClientConfigNil
		}

		cfg.logger = l

		return nil
	})
}
