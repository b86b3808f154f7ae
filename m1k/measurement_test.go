package m1k

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMeasurement(t *testing.T) {
	require := require.New(t)

	t.Run("full sample tuples", func(t *testing.T) {
		meas, err := parseMeasurement("{0: [(1.0, 0.001, 0.0, 0), (1.1, 0.002, 0.1, 0)]}")
		require.NoError(err)
		require.Len(meas, 1)
		require.Equal([]Sample{
			{Voltage: 1.0, Current: 0.001, Timestamp: 0.0, Status: 0},
			{Voltage: 1.1, Current: 0.002, Timestamp: 0.1, Status: 0},
		}, meas[0])
	})

	t.Run("bare voltage current pairs", func(t *testing.T) {
		meas, err := parseMeasurement("{1: [(0.5, 0.01)]}")
		require.NoError(err)
		require.Equal([]Sample{{Voltage: 0.5, Current: 0.01}}, meas[1])
	})

	t.Run("multiple channels", func(t *testing.T) {
		meas, err := parseMeasurement("{0: [], 1: [(2.0, 0.1)]}")
		require.NoError(err)
		require.Len(meas, 2)
		require.Empty(meas[0])
		require.Len(meas[1], 1)
	})

	t.Run("integer sample values", func(t *testing.T) {
		meas, err := parseMeasurement("{0: [(1, 0, 0, 0)]}")
		require.NoError(err)
		require.Equal([]Sample{{Voltage: 1, Current: 0}}, meas[0])
	})

	t.Run("not a dict", func(t *testing.T) {
		_, err := parseMeasurement("[1.0, 2.0]")
		require.Error(err)
		require.Contains(err.Error(), "not a dict")
	})

	t.Run("non-integer channel key", func(t *testing.T) {
		_, err := parseMeasurement("{'a': []}")
		require.Error(err)
		require.Contains(err.Error(), "not an integer")
	})

	t.Run("channel data not a list", func(t *testing.T) {
		_, err := parseMeasurement("{0: 1.0}")
		require.Error(err)
		require.Contains(err.Error(), "not a list")
	})

	t.Run("wrong tuple arity", func(t *testing.T) {
		_, err := parseMeasurement("{0: [(1.0, 2.0, 3.0)]}")
		require.Error(err)
		require.Contains(err.Error(), "want 2 or 4")
	})

	t.Run("malformed literal", func(t *testing.T) {
		_, err := parseMeasurement("{0: [(1.0,")
		require.Error(err)
	})
}
