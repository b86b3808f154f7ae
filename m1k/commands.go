package m1k

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmball/go-m1k/pylit"
)

// SourceMode selects whether a channel sources voltage or current.
type SourceMode string

const (
	// SourceVoltage sources voltage and measures current.
	SourceVoltage SourceMode = "v"
	// SourceCurrent sources current and measures voltage.
	SourceCurrent SourceMode = "i"
)

// MeasurementKind selects which stored configuration a measurement runs.
type MeasurementKind string

const (
	// MeasureDC runs the output configured with ConfigureDC.
	MeasureDC MeasurementKind = "dc"
	// MeasureSweep runs the sweep configured with ConfigureSweep or
	// ConfigureListSweep.
	MeasureSweep MeasurementKind = "sweep"
)

// AllChannels selects every connected channel in commands that take a single
// channel number.
const AllChannels = -1

// Reset resets the SMU parameters to their defaults.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.Query(ctx, "rst")
	return err
}

// PLF returns the power line frequency in Hz.
func (c *Client) PLF(ctx context.Context) (float64, error) {
	return c.queryFloat(ctx, "plf")
}

// SetPLF sets the power line frequency in Hz. NewClient already pushes the
// configured frequency; this overrides it for an already connected client.
func (c *Client) SetPLF(ctx context.Context, hz float64) error {
	_, err := c.Query(ctx, "plf "+formatFloatArg(hz))
	return err
}

// ChannelsPerBoard returns the number of channels per board in use.
func (c *Client) ChannelsPerBoard(ctx context.Context) (int, error) {
	return c.queryInt(ctx, "cpb")
}

// MaximumBufferSize returns the maximum number of samples in the
// write/run/read buffers.
func (c *Client) MaximumBufferSize(ctx context.Context) (int, error) {
	return c.queryInt(ctx, "buf")
}

// NumChannels returns the number of connected SMU channels.
func (c *Client) NumChannels(ctx context.Context) (int, error) {
	return c.queryInt(ctx, "chs")
}

// NumBoards returns the number of connected SMU boards.
func (c *Client) NumBoards(ctx context.Context) (int, error) {
	return c.queryInt(ctx, "bds")
}

// SampleRate returns the raw sample rate of each device.
func (c *Client) SampleRate(ctx context.Context) (int, error) {
	return c.queryInt(ctx, "sr")
}

// ChannelSettings returns the per-channel settings dictionary.
func (c *Client) ChannelSettings(ctx context.Context) (pylit.Dict, error) {
	resp, err := c.Query(ctx, "set")
	if err != nil {
		return nil, err
	}

	val, err := pylit.Parse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse channel settings %q: %w", resp, err)
	}

	dict, ok := val.(pylit.Dict)
	if !ok {
		return nil, fmt.Errorf("channel settings reply %q is not a dict", resp)
	}

	return dict, nil
}

// NPLC returns the integration time in number of power line cycles.
func (c *Client) NPLC(ctx context.Context) (float64, error) {
	return c.queryFloat(ctx, "nplc")
}

// SetNPLC sets the integration time in number of power line cycles.
func (c *Client) SetNPLC(ctx context.Context, nplc float64) error {
	_, err := c.Query(ctx, "nplc "+formatFloatArg(nplc))
	return err
}

// SettlingDelay returns the settling delay in seconds.
func (c *Client) SettlingDelay(ctx context.Context) (float64, error) {
	return c.queryFloat(ctx, "sd")
}

// SetSettlingDelay sets the settling delay in seconds.
func (c *Client) SetSettlingDelay(ctx context.Context, delay float64) error {
	_, err := c.Query(ctx, "sd "+formatFloatArg(delay))
	return err
}

// IDN returns the SMU identity string.
func (c *Client) IDN(ctx context.Context) (string, error) {
	return c.Query(ctx, "idn")
}

// ChannelID returns the serial number of the requested channel (0-indexed).
func (c *Client) ChannelID(ctx context.Context, channel int) (string, error) {
	return c.Query(ctx, "idn "+strconv.Itoa(channel))
}

// UseExternalCalibration applies calibration external to the devices on the
// given channel (0-indexed), or on all channels when AllChannels is given.
func (c *Client) UseExternalCalibration(ctx context.Context, channel int) error {
	_, err := c.Query(ctx, "cal ext "+channelArg(channel))
	return err
}

// UseInternalCalibration applies calibration internal to the devices on the
// given channel (0-indexed), or on all channels when AllChannels is given.
func (c *Client) UseInternalCalibration(ctx context.Context, channel int) error {
	_, err := c.Query(ctx, "cal int "+channelArg(channel))
	return err
}

// ChannelConfig describes the per-channel settings applied by
// ConfigureChannel. Nil fields are left untouched on the server.
type ChannelConfig struct {
	// FourWire enables or disables four wire (remote sense) mode.
	FourWire *bool

	// VoltageRange selects the output range: 5 sources 0-5 V (two quadrant),
	// 2.5 sources -2.5 - +2.5 V (four quadrant).
	VoltageRange *float64

	// Defaults resets all channel settings to their default values.
	Defaults bool
}

// ConfigureChannel applies settings to the given channel (0-indexed), or to
// all channels when AllChannels is given. Each populated field is pushed as
// its own command.
func (c *Client) ConfigureChannel(ctx context.Context, channel int, conf ChannelConfig) error {
	if conf.FourWire != nil {
		if _, err := c.Query(ctx, fmt.Sprintf("fw %s %s", boolArg(*conf.FourWire), channelArg(channel))); err != nil {
			return err
		}
	}

	if conf.VoltageRange != nil {
		if _, err := c.Query(ctx, fmt.Sprintf("vr %s %s", formatFloatArg(*conf.VoltageRange), channelArg(channel))); err != nil {
			return err
		}
	}

	if _, err := c.Query(ctx, fmt.Sprintf("def %s %s", boolArg(conf.Defaults), channelArg(channel))); err != nil {
		return err
	}

	return nil
}

// ConfigureSweep configures a linear output sweep for all channels, from
// start to stop (V or A depending on mode) over the given number of points.
func (c *Client) ConfigureSweep(ctx context.Context, start, stop float64, points int, mode SourceMode) error {
	_, err := c.Query(ctx, fmt.Sprintf("swe %s %s %d %s",
		formatFloatArg(start), formatFloatArg(stop), points, mode))
	return err
}

// ConfigureListSweep configures list sweeps per channel. All value lists must
// have the same length. The collection literal is rendered without internal
// whitespace so it stays a single token in the space-delimited command line.
func (c *Client) ConfigureListSweep(ctx context.Context, values map[int][]float64, mode SourceMode) error {
	_, err := c.Query(ctx, fmt.Sprintf("lst %s %s", pylit.Format(values), mode))
	return err
}

// ConfigureDC configures a DC output per channel.
func (c *Client) ConfigureDC(ctx context.Context, values map[int]float64, mode SourceMode) error {
	_, err := c.Query(ctx, fmt.Sprintf("dc %s %s", pylit.Format(values), mode))
	return err
}

// Measure performs the configured sweep or DC measurement on the given
// channels (0-indexed), or on all channels when channels is nil.
//
// allowChunking permits the server to split a measurement that exceeds the
// device buffer into smaller chunks; with chunking disallowed such a
// measurement is rejected by the server.
//
// An empty reply means the measurement produced no data and yields a nil
// Measurement without error.
func (c *Client) Measure(ctx context.Context, channels []int, kind MeasurementKind, allowChunking bool) (Measurement, error) {
	resp, err := c.Query(ctx, fmt.Sprintf("meas %s %s %s",
		channelsArg(channels), kind, boolArg(allowChunking)))
	if err != nil {
		return nil, err
	}

	// A faulted measurement may legitimately return no data.
	if resp == "" {
		return nil, nil
	}

	return parseMeasurement(resp)
}

// EnableOutput turns the outputs of the given channels (0-indexed) on or
// off. A nil channels slice applies to all channels.
func (c *Client) EnableOutput(ctx context.Context, enable bool, channels []int) error {
	_, err := c.Query(ctx, fmt.Sprintf("eo %s %s", boolArg(enable), channelsArg(channels)))
	return err
}

// SetLEDs sets the LED configuration of the given channel (0-indexed), or of
// all channels when AllChannels is given.
func (c *Client) SetLEDs(ctx context.Context, channel int, red, green, blue bool) error {
	_, err := c.Query(ctx, fmt.Sprintf("led %s %s %s %s",
		boolArg(red), boolArg(green), boolArg(blue), channelArg(channel)))
	return err
}

func (c *Client) queryFloat(ctx context.Context, msg string) (float64, error) {
	resp, err := c.Query(ctx, msg)
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q reply %q: %w", msg, resp, err)
	}

	return val, nil
}

func (c *Client) queryInt(ctx context.Context, msg string) (int, error) {
	resp, err := c.Query(ctx, msg)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("parse %q reply %q: %w", msg, resp, err)
	}

	return val, nil
}

// formatFloatArg renders a float command argument in its shortest form.
func formatFloatArg(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// boolArg renders a boolean command argument as the 0/1 the server expects.
func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// channelArg renders a single channel selector; AllChannels (or any negative
// value) selects every channel.
func channelArg(channel int) string {
	if channel < 0 {
		return "None"
	}
	return strconv.Itoa(channel)
}

// channelsArg renders a channel list selector; nil selects every channel.
func channelsArg(channels []int) string {
	if channels == nil {
		return "None"
	}
	return pylit.Format(channels)
}
