package sh

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rover.go/pkg/motion"
)

type motorStatus struct {
	Enabled bool           `json:"enabled"`
	Command motion.Command `json:"command"`
}

func (s motorStatus) String() string {
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("%s %s", state, s.Command)
}

func withMotors(fn func(c *ishell.Context, s *Shell, m *motion.Controller) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		m, err := s.Motors()
		if err != nil {
			c.Err(err)
			return
		}
		if err := fn(c, s, m); err != nil {
			c.Err(err)
			return
		}
		s.Print(c, motorStatus{Enabled: m.Enabled(), Command: m.Current()})
	}
}

func withSensor(fn func(c *ishell.Context, s *Shell, sensor Sensor, count int) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		count, err := parseCount(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		s := ShellFrom(c)
		sensor, err := s.Sensor()
		if err != nil {
			c.Err(err)
			return
		}
		if err := fn(c, s, sensor, count); err != nil {
			c.Err(err)
		}
	}
}

var (
	// EnableCmd enables the motors.
	EnableCmd = ishell.Cmd{
		Name:    "enable",
		Aliases: []string{"en"},
		Help:    "enable motors",
		Func: withMotors(func(c *ishell.Context, s *Shell, m *motion.Controller) error {
			return m.Enable()
		}),
	}

	// DisableCmd disables the motors.
	DisableCmd = ishell.Cmd{
		Name:    "disable",
		Aliases: []string{"dis"},
		Help:    "disable motors",
		Func: withMotors(func(c *ishell.Context, s *Shell, m *motion.Controller) error {
			return m.Disable()
		}),
	}

	// SpeedsCmd sets both wheels.
	SpeedsCmd = ishell.Cmd{
		Name:    "speeds",
		Aliases: []string{"s"},
		Help:    "LEFT RIGHT | LEFT LDIR RIGHT RDIR",
		Func: withMotors(func(c *ishell.Context, s *Shell, m *motion.Controller) error {
			cmd, err := ParseCommand(c.Args)
			if err != nil {
				return err
			}
			return m.RampTo(cmd, s.Config.DecelRate, s.Config.RampInterval)
		}),
	}

	// StopCmd ramps the motors down to a stop.
	StopCmd = ishell.Cmd{
		Name:    "stop",
		Aliases: []string{"x"},
		Help:    "ramp down to a stop",
		Func: withMotors(func(c *ishell.Context, s *Shell, m *motion.Controller) error {
			return m.RampTo(motion.Stop, s.Config.DecelRate, s.Config.RampInterval)
		}),
	}

	// StatusCmd prints the motor status.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "show motor status",
		Func: withMotors(func(*ishell.Context, *Shell, *motion.Controller) error {
			return nil
		}),
	}

	// SampleCmd prints raw samples.
	SampleCmd = ishell.Cmd{
		Name: "sample",
		Help: "[COUNT] print raw samples",
		Func: withSensor(func(c *ishell.Context, s *Shell, sensor Sensor, count int) error {
			for n := 0; n < count; n++ {
				sample, err := sensor.Sample()
				if err != nil {
					return err
				}
				c.Printf("%s: %dmm\n", sample.Channel, sample.Millimeters)
			}
			return nil
		}),
	}

	// MeasureCmd prints filtered readings.
	MeasureCmd = ishell.Cmd{
		Name:    "measure",
		Aliases: []string{"m"},
		Help:    "[COUNT] print filtered readings",
		Func: withSensor(func(c *ishell.Context, s *Shell, sensor Sensor, count int) error {
			for n := 0; n < count; n++ {
				reading, err := sensor.Measure()
				if err != nil {
					return err
				}
				s.Print(c, reading)
			}
			return nil
		}),
	}
)
