package m1k

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jmball/go-m1k/internal/pool"
	"github.com/jmball/go-m1k/logger"
	"github.com/jmball/go-m1k/m1k/m1ktest"
)

// newTestClient builds a client around cfg without the construction-time plf
// push, so transport behavior can be exercised in isolation.
func newTestClient(t *testing.T, host string, port int, opts ...ClientOption) *Client {
	t.Helper()

	base := []ClientOption{
		WithTimeout(500 * time.Millisecond),
		WithRetryDelay(10 * time.Millisecond),
	}
	cfg, err := NewClientConfig(host, port, append(base, opts...)...)
	require.NoError(t, err)

	return &Client{
		cfg:    cfg,
		logger: cfg.Logger(),
		reader: lineReader{maxSize: cfg.MaxResponseSize()},
		sleep: func(ctx context.Context, d time.Duration) error {
			return nil
		},
	}
}

// closedPort returns a loopback port that nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	return port
}

// serveOnce accepts one connection on ln, reads a full command line and
// writes the scripted reply.
func serveOnce(ln net.Listener, term, reply string) {
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		acc := make([]byte, 0, 256)
		chunk := make([]byte, 256)
		for !bytes.HasSuffix(acc, []byte(term)) {
			n, err := conn.Read(chunk)
			if n > 0 {
				acc = append(acc, chunk[:n]...)
			}
			if err != nil {
				return
			}
		}

		_, _ = conn.Write([]byte(reply + term))
	}()
}

func TestQueryEcho(t *testing.T) {
	require := require.New(t)

	srv, err := m1ktest.Start(func(cmd string) string { return cmd })
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port())

	resp, err := c.Query(context.Background(), "ping")
	require.NoError(err)
	require.Equal("ping", resp)
	require.EqualValues(1, srv.ConnCount())
	require.EqualValues(1, c.Metrics().QueryCount.Load())
	require.EqualValues(0, c.Metrics().InflightGauge.Load())
}

func TestQueryEmptyReply(t *testing.T) {
	require := require.New(t)

	srv, err := m1ktest.Start(func(cmd string) string { return "" })
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port())

	resp, err := c.Query(context.Background(), "meas None dc 0")
	require.NoError(err)
	require.Equal("", resp)
}

func TestQueryServerError(t *testing.T) {
	require := require.New(t)

	srv, err := m1ktest.Start(func(cmd string) string {
		return "ERROR: unknown command 'bogus'"
	})
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port(), WithRetries(5))

	_, err = c.Query(context.Background(), "bogus")
	require.Error(err)
	require.True(IsServerError(err))
	require.Contains(err.Error(), "ERROR: unknown command 'bogus'")

	// a server rejection is terminal: no second connection was attempted
	require.EqualValues(1, srv.ConnCount())
	require.EqualValues(1, c.Metrics().ServerErrCount.Load())
	require.EqualValues(0, c.Metrics().RetryCount.Load())
}

func TestQueryRefusedAllAttempts(t *testing.T) {
	require := require.New(t)

	const retries = 3
	c := newTestClient(t, "127.0.0.1", closedPort(t), WithRetries(retries))

	var sleeps int
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		require.Equal(10*time.Millisecond, d)
		return nil
	}

	_, err := c.Query(context.Background(), "idn")
	require.Error(err)
	require.ErrorIs(err, ErrRetriesExhausted)
	require.True(IsTransientError(err))

	// retries attempts, with a delay between each pair of attempts
	require.Equal(retries-1, sleeps)
	require.EqualValues(retries, c.Metrics().TransientErrCount.Load())
	require.EqualValues(retries-1, c.Metrics().RetryCount.Load())
}

func TestQueryRefusedThenSucceeds(t *testing.T) {
	require := require.New(t)

	port := closedPort(t)
	c := newTestClient(t, "127.0.0.1", port, WithRetries(3))

	var sleeps int
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		if sleeps == 1 {
			// the server comes back up during the first retry wait
			ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
			require.NoError(err)
			t.Cleanup(func() { ln.Close() })
			serveOnce(ln, "\n", "recovered")
		}
		return nil
	}

	resp, err := c.Query(context.Background(), "idn")
	require.NoError(err)
	require.Equal("recovered", resp)
	require.Equal(1, sleeps)
}

func TestQueryTimeout(t *testing.T) {
	require := require.New(t)

	srv, err := m1ktest.Start(func(cmd string) string {
		time.Sleep(300 * time.Millisecond)
		return "too late"
	})
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port(),
		WithRetries(1), WithTimeout(50*time.Millisecond))

	_, err = c.Query(context.Background(), "idn")
	require.Error(err)
	require.ErrorIs(err, ErrRetriesExhausted)
	require.True(IsTransientError(err))
}

func TestQueryWarnsBetweenAttempts(t *testing.T) {
	require := require.New(t)

	l := logger.NewMockLogger()
	l.On("Warn", "server probably down, retrying", mock.Anything).Return()
	l.On("Debug", mock.Anything, mock.Anything).Maybe().Return()

	c := newTestClient(t, "127.0.0.1", closedPort(t), WithRetries(3), WithLogger(l))

	_, err := c.Query(context.Background(), "idn")
	require.Error(err)

	l.AssertNumberOfCalls(t, "Warn", 2)
}

func TestQueryCancelledDuringRetryWait(t *testing.T) {
	require := require.New(t)

	cfg, err := NewClientConfig("127.0.0.1", closedPort(t),
		WithTimeout(500*time.Millisecond),
		WithRetries(3),
		WithRetryDelay(10*time.Second),
	)
	require.NoError(err)

	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger(),
		reader: lineReader{maxSize: cfg.MaxResponseSize()},
		sleep:  pool.Sleep,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Query(ctx, "idn")
	require.Error(err)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Less(time.Since(start), 5*time.Second)
}

func TestSetTerminatorAffectsLaterCalls(t *testing.T) {
	require := require.New(t)

	srv, err := m1ktest.Start(func(cmd string) string { return cmd },
		m1ktest.WithTerminator(";"))
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port(),
		WithRetries(1), WithTimeout(100*time.Millisecond))

	// the default "\n" terminator never matches the server's framing, so the
	// exchange times out
	_, err = c.Query(context.Background(), "ping")
	require.Error(err)
	require.True(IsTransientError(err))

	require.NoError(c.SetTerminator(";"))

	resp, err := c.Query(context.Background(), "ping")
	require.NoError(err)
	require.Equal("ping", resp)
	require.Equal(";", c.Terminator())
}

func TestQueryConcurrent(t *testing.T) {
	require := require.New(t)

	srv, err := m1ktest.Start(func(cmd string) string { return cmd })
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port())

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := fmt.Sprintf("msg-%d", i)
			resp, err := c.Query(context.Background(), msg)
			if err == nil && resp != msg {
				err = fmt.Errorf("got %q, want %q", resp, msg)
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(err)
	}
	require.EqualValues(10, srv.ConnCount())
}

func TestNewClientPushesLineFrequency(t *testing.T) {
	require := require.New(t)

	sim := m1ktest.NewSimulator(1, 2)
	srv, err := m1ktest.Start(sim.Handle)
	require.NoError(err)
	defer srv.Close()

	cfg, err := NewClientConfig(srv.Host(), srv.Port(), WithLineFrequency(60))
	require.NoError(err)

	c, err := NewClient(context.Background(), cfg)
	require.NoError(err)
	require.EqualValues(1, srv.ConnCount())

	plf, err := c.PLF(context.Background())
	require.NoError(err)
	require.InDelta(60, plf, 1e-9)
}

func TestNewClientFailsWhenServerUnreachable(t *testing.T) {
	require := require.New(t)

	cfg, err := NewClientConfig("127.0.0.1", closedPort(t),
		WithTimeout(100*time.Millisecond),
		WithRetries(1),
		WithRetryDelay(time.Millisecond),
	)
	require.NoError(err)

	_, err = NewClient(context.Background(), cfg)
	require.Error(err)
	require.Contains(err.Error(), "push power line frequency")
	require.ErrorIs(err, ErrRetriesExhausted)
}

func TestNewClientNilConfig(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	require.ErrorIs(t, err, ErrClientConfigNil)
}
