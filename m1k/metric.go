package m1k

import (
	"sync/atomic"
)

// ClientMetrics contains atomic metrics for a transport client.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ClientMetrics struct {
	// QueryCount indicates the number of queries started.
	QueryCount atomic.Uint64
	// RetryCount indicates the number of retry waits performed.
	RetryCount atomic.Uint64
	// TransientErrCount indicates the number of attempts that failed with a
	// transient network error.
	TransientErrCount atomic.Uint64
	// ServerErrCount indicates the number of queries rejected by the server.
	ServerErrCount atomic.Uint64
	// InflightGauge indicates the number of queries in flight.
	InflightGauge atomic.Int64
}

func (m *ClientMetrics) incQueryCount() {
	m.QueryCount.Add(1)
}

func (m *ClientMetrics) incRetryCount() {
	m.RetryCount.Add(1)
}

func (m *ClientMetrics) incTransientErrCount() {
	m.TransientErrCount.Add(1)
}

func (m *ClientMetrics) incServerErrCount() {
	m.ServerErrCount.Add(1)
}

func (m *ClientMetrics) incInflightGauge() {
	m.InflightGauge.Add(1)
}

func (m *ClientMetrics) decInflightGauge() {
	m.InflightGauge.Add(-1)
}
