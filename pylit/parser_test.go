package pylit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"integer", "42", int64(42)},
		{"negative integer", "-7", int64(-7)},
		{"float", "1.5", 1.5},
		{"negative float", "-0.25", -0.25},
		{"float without fraction digits", "1.", 1.0},
		{"scientific notation", "1e3", 1000.0},
		{"negative exponent", "2.5e-3", 0.0025},
		{"true", "True", true},
		{"false", "False", false},
		{"none", "None", nil},
		{"single quoted string", "'abc'", "abc"},
		{"double quoted string", `"abc"`, "abc"},
		{"escaped quote", `'it\'s'`, "it's"},
		{"surrounding whitespace", "  3.5 ", 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, val)
		})
	}
}

func TestParseCollections(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"empty list", "[]", List{}},
		{"empty dict", "{}", Dict{}},
		{"list of floats", "[1.0,2.0]", List{1.0, 2.0}},
		{"list with spaces", "[1.0, 2.0]", List{1.0, 2.0}},
		{"tuple", "(1,2,3)", List{int64(1), int64(2), int64(3)}},
		{"trailing comma", "[1,2,]", List{int64(1), int64(2)}},
		{
			"dict of channel sweeps",
			"{0: [1.0, 2.0]}",
			Dict{int64(0): List{1.0, 2.0}},
		},
		{
			"nested dict",
			"{0:{'nplc':1.0,'four_wire':True},1:{'nplc':10.0,'four_wire':False}}",
			Dict{
				int64(0): Dict{"nplc": 1.0, "four_wire": true},
				int64(1): Dict{"nplc": 10.0, "four_wire": false},
			},
		},
		{
			"measurement data",
			"{0:[(1.0,0.001,0.0,0),(1.0,0.002,0.1,0)]}",
			Dict{int64(0): List{
				List{1.0, 0.001, 0.0, int64(0)},
				List{1.0, 0.002, 0.1, int64(0)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := Parse(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, val)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"blank input", "   "},
		{"unterminated string", "'abc"},
		{"unterminated list", "[1,2"},
		{"missing colon", "{0 1}"},
		{"missing comma", "[1 2]"},
		{"bare sign", "-"},
		{"unknown name", "maybe"},
		{"trailing garbage", "1.0 extra"},
		{"unhashable key", "{[1]:2}"},
		{"unexpected character", "@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
		})
	}
}

func TestParseDeeplyNested(t *testing.T) {
	require := require.New(t)

	var input string
	for range 100 {
		input += "["
	}

	_, err := Parse(input)
	require.Error(err)
	require.Contains(err.Error(), "nesting")
}
