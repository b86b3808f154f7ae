package m1ktest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulatorVocabulary(t *testing.T) {
	require := require.New(t)

	sim := NewSimulator(1, 2)

	require.Equal("", sim.Handle("plf 60"))
	require.Equal("60.0", sim.Handle("plf"))

	require.Equal("2", sim.Handle("chs"))
	require.Equal("1", sim.Handle("bds"))
	require.Equal("2", sim.Handle("cpb"))

	require.Equal("", sim.Handle("nplc 10"))
	require.Equal("10.0", sim.Handle("nplc"))

	require.Equal("", sim.Handle("eo 1 None"))
	require.Equal("", sim.Handle("led 1 0 0 0"))
	require.Equal("", sim.Handle("fw 1 None"))

	set := sim.Handle("set")
	require.Contains(set, "'four_wire':True")

	require.Equal("", sim.Handle("dc {0:0.5,1:0.25} v"))
	meas := sim.Handle("meas [0] dc 0")
	require.True(strings.HasPrefix(meas, "{0:[[0.5,"))

	require.Equal("", sim.Handle("rst"))
	require.Equal("1.0", sim.Handle("nplc"))
}

func TestSimulatorErrors(t *testing.T) {
	require := require.New(t)

	sim := NewSimulator(1, 1)

	tests := []string{
		"bogus",
		"plf zero",
		"vr 3.3 0",
		"idn 9",
		"meas [9] dc 0",
		"meas None sweep 0", // no sweep configured
		"lst {0:'x'} v",
	}
	for _, cmd := range tests {
		reply := sim.Handle(cmd)
		require.True(strings.HasPrefix(reply, "ERROR"), "command %q got %q", cmd, reply)
	}
}

func TestSimulatorSweep(t *testing.T) {
	require := require.New(t)

	sim := NewSimulator(1, 1)

	require.Equal("", sim.Handle("swe 0 1 3 v"))
	meas := sim.Handle("meas None sweep 0")
	require.Contains(meas, "0.5")
	require.False(strings.HasPrefix(meas, "ERROR"))
}
