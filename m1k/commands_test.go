package m1k

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmball/go-m1k/m1k/m1ktest"
)

// commandRecorder captures the command lines a client sends.
type commandRecorder struct {
	mu   sync.Mutex
	cmds []string
}

func (r *commandRecorder) handle(cmd string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return ""
}

func (r *commandRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...)
}

func TestCommandFormatting(t *testing.T) {
	require := require.New(t)

	rec := &commandRecorder{}
	srv, err := m1ktest.Start(rec.handle)
	require.NoError(err)
	defer srv.Close()

	c := newTestClient(t, srv.Host(), srv.Port())
	ctx := context.Background()

	fourWire := true
	vRange := 2.5

	require.NoError(c.Reset(ctx))
	require.NoError(c.SetNPLC(ctx, 1))
	require.NoError(c.SetSettlingDelay(ctx, 0.005))
	require.NoError(c.UseExternalCalibration(ctx, AllChannels))
	require.NoError(c.UseInternalCalibration(ctx, 1))
	require.NoError(c.ConfigureChannel(ctx, 0, ChannelConfig{FourWire: &fourWire, VoltageRange: &vRange}))
	require.NoError(c.ConfigureSweep(ctx, 0, 1, 101, SourceVoltage))
	require.NoError(c.ConfigureListSweep(ctx, map[int][]float64{0: {1.0, 2.0}}, SourceVoltage))
	require.NoError(c.ConfigureDC(ctx, map[int]float64{0: 0.5, 1: 0.5}, SourceCurrent))
	require.NoError(c.EnableOutput(ctx, true, nil))
	require.NoError(c.EnableOutput(ctx, false, []int{0}))
	require.NoError(c.SetLEDs(ctx, AllChannels, true, false, true))

	meas, err := c.Measure(ctx, nil, MeasureDC, false)
	require.NoError(err)
	require.Nil(meas) // empty reply means no data

	meas, err = c.Measure(ctx, []int{0, 1}, MeasureSweep, true)
	require.NoError(err)
	require.Nil(meas)

	require.Equal([]string{
		"rst",
		"nplc 1",
		"sd 0.005",
		"cal ext None",
		"cal int 1",
		"fw 1 0",
		"vr 2.5 0",
		"def 0 0",
		"swe 0 1 101 v",
		"lst {0:[1.0,2.0]} v",
		"dc {0:0.5,1:0.5} i",
		"eo 1 None",
		"eo 0 [0]",
		"led 1 0 1 None",
		"meas None dc 0",
		"meas [0,1] sweep 1",
	}, rec.recorded())
}

func startSimClient(t *testing.T) (*Client, *m1ktest.Simulator) {
	t.Helper()

	sim := m1ktest.NewSimulator(2, 1)
	srv, err := m1ktest.Start(sim.Handle)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	cfg, err := NewClientConfig(srv.Host(), srv.Port(),
		WithTimeout(2*time.Second),
		WithRetryDelay(10*time.Millisecond),
	)
	require.NoError(t, err)

	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)

	return c, sim
}

func TestInstrumentInfo(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)
	ctx := context.Background()

	idn, err := c.IDN(ctx)
	require.NoError(err)
	require.Contains(idn, "m1k-sim")

	numChannels, err := c.NumChannels(ctx)
	require.NoError(err)
	require.Equal(2, numChannels)

	numBoards, err := c.NumBoards(ctx)
	require.NoError(err)
	require.Equal(2, numBoards)

	cpb, err := c.ChannelsPerBoard(ctx)
	require.NoError(err)
	require.Equal(1, cpb)

	bufSize, err := c.MaximumBufferSize(ctx)
	require.NoError(err)
	require.Equal(100_000, bufSize)

	rate, err := c.SampleRate(ctx)
	require.NoError(err)
	require.Equal(100_000, rate)

	serial, err := c.ChannelID(ctx, 0)
	require.NoError(err)
	require.Equal("20419900000", serial)
}

func TestScalarSettings(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)
	ctx := context.Background()

	require.NoError(c.SetNPLC(ctx, 10))
	nplc, err := c.NPLC(ctx)
	require.NoError(err)
	require.InDelta(10, nplc, 1e-9)

	require.NoError(c.SetSettlingDelay(ctx, 0.01))
	sd, err := c.SettlingDelay(ctx)
	require.NoError(err)
	require.InDelta(0.01, sd, 1e-9)

	require.NoError(c.Reset(ctx))
	nplc, err = c.NPLC(ctx)
	require.NoError(err)
	require.InDelta(1, nplc, 1e-9)
}

func TestChannelSettings(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)
	ctx := context.Background()

	set, err := c.ChannelSettings(ctx)
	require.NoError(err)
	require.Len(set, 2)

	ch0, ok := set[int64(0)].(map[any]any)
	require.True(ok)
	require.Equal(5.0, ch0["v_range"])
	require.Equal(false, ch0["four_wire"])
}

func TestDCMeasurement(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)
	ctx := context.Background()

	require.NoError(c.ConfigureDC(ctx, map[int]float64{0: 0.5, 1: 0.25}, SourceVoltage))
	require.NoError(c.EnableOutput(ctx, true, nil))

	meas, err := c.Measure(ctx, nil, MeasureDC, false)
	require.NoError(err)
	require.Len(meas, 2)
	require.Len(meas[0], 1)
	require.InDelta(0.5, meas[0][0].Voltage, 1e-9)
	require.InDelta(0.25, meas[1][0].Voltage, 1e-9)
	require.InDelta(0.5e-3, meas[0][0].Current, 1e-12)
}

func TestSweepMeasurement(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)
	ctx := context.Background()

	require.NoError(c.ConfigureSweep(ctx, 0, 1, 5, SourceVoltage))

	meas, err := c.Measure(ctx, []int{0}, MeasureSweep, false)
	require.NoError(err)
	require.Len(meas, 1)
	require.Len(meas[0], 5)
	require.InDelta(0, meas[0][0].Voltage, 1e-9)
	require.InDelta(0.25, meas[0][1].Voltage, 1e-9)
	require.InDelta(1, meas[0][4].Voltage, 1e-9)
	require.Greater(meas[0][4].Timestamp, meas[0][0].Timestamp)
}

func TestListSweepMeasurement(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)
	ctx := context.Background()

	require.NoError(c.ConfigureListSweep(ctx, map[int][]float64{1: {0.1, 0.2}}, SourceVoltage))

	meas, err := c.Measure(ctx, []int{1}, MeasureSweep, false)
	require.NoError(err)
	require.Len(meas, 1)
	require.Len(meas[1], 2)
	require.InDelta(0.1, meas[1][0].Voltage, 1e-9)
	require.InDelta(0.2, meas[1][1].Voltage, 1e-9)
}

func TestMeasureUnknownChannel(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)

	_, err := c.Measure(context.Background(), []int{5}, MeasureDC, false)
	require.Error(err)
	require.True(IsServerError(err))
	require.Contains(err.Error(), "channel 5 does not exist")
}

func TestUnknownCommandRejected(t *testing.T) {
	require := require.New(t)

	c, _ := startSimClient(t)

	_, err := c.Query(context.Background(), "bogus 1 2 3")
	require.Error(err)
	require.True(IsServerError(err))
}
