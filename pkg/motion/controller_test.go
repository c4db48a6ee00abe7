package motion

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	enabled  bool
	commands []Command
	err      error
}

func (d *recordingDriver) Enable() error {
	d.enabled = true
	return nil
}

func (d *recordingDriver) Disable() error {
	d.enabled = false
	return nil
}

func (d *recordingDriver) SetSpeeds(leftSpeed int, leftDir Direction, rightSpeed int, rightDir Direction) error {
	if d.err != nil {
		return d.err
	}
	d.commands = append(d.commands, Command{leftSpeed, leftDir, rightSpeed, rightDir})
	return nil
}

func TestControllerClamp(t *testing.T) {
	testCases := []struct {
		name   string
		in     Command
		expect Command
	}{
		{"in range", Command{100, Forward, 200, Backward}, Command{100, Forward, 200, Backward}},
		{"above max", Command{1000, Forward, 481, Forward}, Command{480, Forward, 480, Forward}},
		{"negative flipped", Command{-100, Backward, -1000, Forward}, Command{100, Backward, 480, Forward}},
		{"zero", Command{0, Forward, 0, Backward}, Command{0, Forward, 0, Backward}},
		{"min int", Command{math.MinInt, Backward, math.MaxInt, Forward}, Command{480, Backward, 480, Forward}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			drv := &recordingDriver{}
			c := NewController(drv, 0)
			require.NoError(t, c.SetSpeeds(tc.in.LeftSpeed, tc.in.LeftDir, tc.in.RightSpeed, tc.in.RightDir))
			require.Equal(t, []Command{tc.expect}, drv.commands)
			require.Equal(t, tc.expect, c.Current())
		})
	}
}

func TestControllerEnableDisable(t *testing.T) {
	drv := &recordingDriver{}
	c := NewController(drv, 100)
	require.NoError(t, c.Enable())
	require.True(t, drv.enabled)
	require.True(t, c.Enabled())
	require.NoError(t, c.Disable())
	require.False(t, drv.enabled)
	require.False(t, c.Enabled())
}

func TestControllerIssueError(t *testing.T) {
	drv := &recordingDriver{err: errors.New("bus fault")}
	c := NewController(drv, 100)
	err := c.Issue(Command{LeftSpeed: 10, RightSpeed: 10})
	require.Error(t, err)
	require.True(t, errors.Is(err, drv.err))
	require.Equal(t, Stop, c.Current())
}

func TestControllerRampTo(t *testing.T) {
	drv := &recordingDriver{}
	var sleeps []time.Duration
	c := NewController(drv, 480)
	c.Sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	require.NoError(t, c.Issue(Command{400, Forward, 200, Forward}))
	target := Command{480, Backward, 240, Backward}
	require.NoError(t, c.RampTo(target, 0.25, 10*time.Millisecond))

	require.Equal(t, []Command{
		{400, Forward, 200, Forward},
		{400, Forward, 200, Forward},
		{300, Forward, 150, Forward},
		{200, Forward, 100, Forward},
		{100, Forward, 50, Forward},
		{0, Forward, 0, Forward},
		target,
	}, drv.commands)
	require.Len(t, sleeps, 5)
	require.Equal(t, target, c.Current())
}

func TestControllerRampToUnevenRate(t *testing.T) {
	drv := &recordingDriver{}
	c := NewController(drv, 480)
	c.Sleep = func(time.Duration) {}

	require.NoError(t, c.Issue(Command{300, Forward, 300, Forward}))
	drv.commands = nil
	require.NoError(t, c.RampTo(Stop, 0.4, time.Millisecond))
	require.Equal(t, []Command{
		{300, Forward, 300, Forward},
		{180, Forward, 180, Forward},
		{60, Forward, 60, Forward},
		{0, Forward, 0, Forward},
		Stop,
	}, drv.commands)
}

func TestControllerRampFromStop(t *testing.T) {
	drv := &recordingDriver{}
	c := NewController(drv, 480)
	c.Sleep = func(time.Duration) { t.Fatal("unexpected sleep") }
	target := Command{480, Forward, 384, Forward}
	require.NoError(t, c.RampTo(target, 0.25, time.Second))
	require.Equal(t, []Command{target}, drv.commands)
}

func TestControllerRampInvalidRate(t *testing.T) {
	c := NewController(&recordingDriver{}, 480)
	for _, rate := range []float64{0, -0.5, 1.5} {
		require.Equal(t, ErrInvalidDecelRate, c.RampTo(Stop, rate, 0))
	}
}
