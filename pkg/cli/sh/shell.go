package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/rover.go/pkg/avoidance"
	"github.com/robotalks/rover.go/pkg/motion"
	"github.com/robotalks/rover.go/pkg/sonar"
)

// Sensor is the sonar line, sonar.Sampler is one.
type Sensor interface {
	Sample() (sonar.Sample, error)
	Measure() (sonar.Reading, error)
	Close() error
}

// Shell provides ishell backed interactive shell for motors and sonars.
// Hardware is opened on first use.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell      *ishell.Shell
	Config     *avoidance.Config
	OpenDriver func() (motion.Driver, error)
	OpenSensor func() (Sensor, error)

	motors *motion.Controller
	sensor Sensor
}

const shellKey = "$shell"

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&EnableCmd,
		&DisableCmd,
		&SpeedsCmd,
		&StopCmd,
		&StatusCmd,
		&SampleCmd,
		&MeasureCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *avoidance.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		Config:      conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("rover > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Motors opens the motor driver on first call.
func (s *Shell) Motors() (*motion.Controller, error) {
	if s.motors == nil {
		if s.OpenDriver == nil {
			return nil, fmt.Errorf("no motor driver")
		}
		drv, err := s.OpenDriver()
		if err != nil {
			return nil, err
		}
		s.motors = motion.NewController(drv, s.Config.MaxSpeed)
	}
	return s.motors, nil
}

// Sensor opens the sonar line on first call.
func (s *Shell) Sensor() (Sensor, error) {
	if s.sensor == nil {
		if s.OpenSensor == nil {
			return nil, fmt.Errorf("no sonar")
		}
		sensor, err := s.OpenSensor()
		if err != nil {
			return nil, err
		}
		s.sensor = sensor
	}
	return s.sensor, nil
}

// Close stops and disables the motors and closes the sonar line.
func (s *Shell) Close() error {
	var err error
	if s.motors != nil {
		if e := s.motors.Issue(motion.Stop); e != nil {
			err = e
		}
		if e := s.motors.Disable(); e != nil {
			err = e
		}
	}
	if s.sensor != nil {
		if e := s.sensor.Close(); e != nil {
			err = e
		}
	}
	return err
}

// Print prints v as JSON or with its String form.
func (s *Shell) Print(c *ishell.Context, v fmt.Stringer) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v.String())
}

// ParseCommand parses "LEFT RIGHT" with signed speeds, negative means
// backward, or "LEFT LDIR RIGHT RDIR" with LDIR/RDIR in f, fwd, b, bwd.
func ParseCommand(args []string) (cmd motion.Command, err error) {
	switch len(args) {
	case 2:
		if cmd.LeftSpeed, cmd.LeftDir, err = parseSignedSpeed(args[0]); err != nil {
			return
		}
		cmd.RightSpeed, cmd.RightDir, err = parseSignedSpeed(args[1])
		return
	case 4:
		if cmd.LeftSpeed, err = strconv.Atoi(args[0]); err != nil {
			return cmd, fmt.Errorf("invalid LEFT: %v", err)
		}
		if cmd.LeftDir, err = parseDirection(args[1]); err != nil {
			return
		}
		if cmd.RightSpeed, err = strconv.Atoi(args[2]); err != nil {
			return cmd, fmt.Errorf("invalid RIGHT: %v", err)
		}
		cmd.RightDir, err = parseDirection(args[3])
		return
	}
	return cmd, fmt.Errorf("expect LEFT RIGHT or LEFT LDIR RIGHT RDIR")
}

func parseSignedSpeed(arg string) (int, motion.Direction, error) {
	speed, err := strconv.Atoi(arg)
	if err != nil {
		return 0, motion.Forward, fmt.Errorf("invalid speed %q: %v", arg, err)
	}
	if speed < 0 {
		return -speed, motion.Backward, nil
	}
	return speed, motion.Forward, nil
}

func parseDirection(arg string) (motion.Direction, error) {
	switch strings.ToLower(arg) {
	case "f", "fwd", "forward":
		return motion.Forward, nil
	case "b", "bwd", "backward":
		return motion.Backward, nil
	}
	return motion.Forward, fmt.Errorf("invalid direction %q", arg)
}

func parseCount(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid COUNT %q", args[0])
	}
	return n, nil
}

// Run runs the shell, or a single command if args are present.
// Hardware is released when it returns.
func (s *Shell) Run(args ...string) error {
	defer func() {
		if err := s.Close(); err != nil {
			glog.Errorf("close: %v", err)
		}
	}()
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}
