package sonar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	testCases := []struct {
		in     string
		expect Unit
	}{
		{"mm", Millimeter},
		{"Millimeters", Millimeter},
		{"cm", Centimeter},
		{" centimeter ", Centimeter},
		{"M", Meter},
		{"meters", Meter},
		{"in.", Inch},
		{"INCHES", Inch},
		{"ft", Foot},
		{"feet", Foot},
		{"foot", Foot},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			u, err := ParseUnit(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expect, u)
			require.True(t, u.IsValid())
		})
	}

	_, err := ParseUnit("yards")
	require.True(t, errors.Is(err, ErrInvalidUnit))
	require.False(t, Unit("yd").IsValid())
}

func TestUnitConversion(t *testing.T) {
	testCases := []struct {
		unit Unit
		mm   float64
		val  float64
	}{
		{Millimeter, 1234, 1234},
		{Centimeter, 1234, 123.4},
		{Meter, 1234, 1.234},
		{Inch, 254, 10},
		{Foot, 609.6, 2},
	}
	for _, tc := range testCases {
		t.Run(string(tc.unit), func(t *testing.T) {
			v := tc.unit.FromMillimeters(tc.mm)
			require.InDelta(t, tc.val, v, 1e-9)
			require.InDelta(t, tc.mm, tc.unit.ToMillimeters(v), 1e-9)
		})
	}
}

func TestReadingMillimeters(t *testing.T) {
	r := Reading{Channel: ChannelLeft, Value: 30.25, Unit: Centimeter}
	require.InDelta(t, 302.5, r.Millimeters(), 1e-9)
	require.Equal(t, "left:   30.25cm", r.String())
}
