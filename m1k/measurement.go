package m1k

import (
	"fmt"

	"github.com/jmball/go-m1k/pylit"
)

// Sample is one measured point on a channel.
type Sample struct {
	// Voltage in volts.
	Voltage float64
	// Current in amps.
	Current float64
	// Timestamp in seconds relative to the start of the measurement.
	// Zero when the server reports bare voltage/current pairs.
	Timestamp float64
	// Status is the raw device status word for the sample.
	// Zero when the server reports bare voltage/current pairs.
	Status int64
}

// Measurement holds measured data per channel (0-indexed).
type Measurement map[int][]Sample

// parseMeasurement decodes a measurement reply of the form
// {channel: [(voltage, current, timestamp, status), ...]}. The server may
// also report bare (voltage, current) pairs.
func parseMeasurement(resp string) (Measurement, error) {
	val, err := pylit.Parse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse measurement reply %q: %w", resp, err)
	}

	dict, ok := val.(pylit.Dict)
	if !ok {
		return nil, fmt.Errorf("measurement reply %q is not a dict", resp)
	}

	meas := make(Measurement, len(dict))
	for key, chData := range dict {
		ch, ok := key.(int64)
		if !ok {
			return nil, fmt.Errorf("measurement channel key %v is not an integer", key)
		}

		rows, ok := chData.(pylit.List)
		if !ok {
			return nil, fmt.Errorf("measurement data for channel %d is not a list", ch)
		}

		samples := make([]Sample, 0, len(rows))
		for _, row := range rows {
			sample, err := parseSample(row)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", ch, err)
			}
			samples = append(samples, sample)
		}

		meas[int(ch)] = samples
	}

	return meas, nil
}

func parseSample(row any) (Sample, error) {
	tuple, ok := row.(pylit.List)
	if !ok {
		return Sample{}, fmt.Errorf("sample %v is not a tuple", row)
	}

	if len(tuple) != 2 && len(tuple) != 4 {
		return Sample{}, fmt.Errorf("sample tuple has %d values, want 2 or 4", len(tuple))
	}

	var sample Sample
	var err error

	if sample.Voltage, err = toFloat(tuple[0]); err != nil {
		return Sample{}, fmt.Errorf("sample voltage: %w", err)
	}
	if sample.Current, err = toFloat(tuple[1]); err != nil {
		return Sample{}, fmt.Errorf("sample current: %w", err)
	}

	if len(tuple) == 4 {
		if sample.Timestamp, err = toFloat(tuple[2]); err != nil {
			return Sample{}, fmt.Errorf("sample timestamp: %w", err)
		}
		if sample.Status, err = toInt(tuple[3]); err != nil {
			return Sample{}, fmt.Errorf("sample status: %w", err)
		}
	}

	return sample, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
}
