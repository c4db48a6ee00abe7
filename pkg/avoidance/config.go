package avoidance

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/robotalks/rover.go/pkg/motion"
	"github.com/robotalks/rover.go/pkg/sonar"
)

var (
	// ErrInvalidDuration indicates a negative hold or step duration.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidConfig indicates a parameter out of range.
	ErrInvalidConfig = errors.New("invalid avoidance config")
)

// Config defines the parameters of obstacle avoidance.
// All distances are in millimeters regardless of Unit.
type Config struct {
	Device        string
	Threshold     float64
	BufferSize    int
	UpperBound    int
	Unit          string
	SerialTimeout time.Duration

	MaxSpeed     int
	DecelRate    float64
	RampInterval time.Duration

	TurnTime        time.Duration
	ReverseTime     time.Duration
	TurnDistance    float64
	ReverseDistance float64
	// Offset scales the right wheel to compensate drivetrain skew.
	Offset float64
	// Flip swaps turns for reversed wheel wiring.
	Flip bool
}

// Defaults
const (
	DefaultThreshold       = 0.1
	DefaultBufferSize      = 5
	DefaultDecelRate       = 0.25
	DefaultRampInterval    = 50 * time.Millisecond
	DefaultTurnTime        = time.Second
	DefaultReverseTime     = time.Second
	DefaultTurnDistance    = 1000
	DefaultReverseDistance = 500
	DefaultOffset          = 0.8
)

var defaultConfig = Config{
	Device:          sonar.DefaultDevice,
	Threshold:       DefaultThreshold,
	BufferSize:      DefaultBufferSize,
	UpperBound:      sonar.DefaultUpperBound,
	Unit:            string(sonar.Millimeter),
	SerialTimeout:   sonar.DefaultTimeout,
	MaxSpeed:        motion.DefaultMaxSpeed,
	DecelRate:       DefaultDecelRate,
	RampInterval:    DefaultRampInterval,
	TurnTime:        DefaultTurnTime,
	ReverseTime:     DefaultReverseTime,
	TurnDistance:    DefaultTurnDistance,
	ReverseDistance: DefaultReverseDistance,
	Offset:          DefaultOffset,
}

func init() {
	if val := os.Getenv("ROVER_SONAR_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "sonar-device", defaultConfig.Device, "Serial device of the sonars.")
	flag.Float64Var(&defaultConfig.Threshold, "threshold", defaultConfig.Threshold, "Outlier threshold as a fraction of the mean.")
	flag.IntVar(&defaultConfig.BufferSize, "buffer-size", defaultConfig.BufferSize, "Samples averaged into one reading.")
	flag.IntVar(&defaultConfig.UpperBound, "upper-bound", defaultConfig.UpperBound, "Samples above this distance (mm) are discarded.")
	flag.StringVar(&defaultConfig.Unit, "unit", defaultConfig.Unit, "Unit of readings: mm, cm, m, in, ft.")
	flag.DurationVar(&defaultConfig.SerialTimeout, "serial-timeout", defaultConfig.SerialTimeout, "Fail when no valid frame arrives within this time.")
	flag.IntVar(&defaultConfig.MaxSpeed, "max-speed", defaultConfig.MaxSpeed, "Speed limit of the wheels, 480 is full PWM duty.")
	flag.Float64Var(&defaultConfig.DecelRate, "decel-rate", defaultConfig.DecelRate, "Speed fraction removed per ramp step, in (0, 1].")
	flag.DurationVar(&defaultConfig.RampInterval, "ramp-interval", defaultConfig.RampInterval, "Wait between ramp steps.")
	flag.DurationVar(&defaultConfig.TurnTime, "turn-time", defaultConfig.TurnTime, "How long to turn away from an obstacle.")
	flag.DurationVar(&defaultConfig.ReverseTime, "reverse-time", defaultConfig.ReverseTime, "How long to back off from a close obstacle.")
	flag.Float64Var(&defaultConfig.TurnDistance, "turn-distance", defaultConfig.TurnDistance, "Turn away from obstacles closer than this (mm).")
	flag.Float64Var(&defaultConfig.ReverseDistance, "reverse-distance", defaultConfig.ReverseDistance, "Back off from obstacles closer than this (mm).")
	flag.Float64Var(&defaultConfig.Offset, "offset", defaultConfig.Offset, "Right wheel speed as a fraction of the left one.")
	flag.BoolVar(&defaultConfig.Flip, "flip", defaultConfig.Flip, "Wheels are wired in reverse.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks all parameters.
func (c *Config) Validate() error {
	if _, err := c.SamplerConfig(); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"ramp interval": c.RampInterval,
		"turn time":     c.TurnTime,
		"reverse time":  c.ReverseTime,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s %v", ErrInvalidDuration, name, d)
		}
	}
	if c.MaxSpeed <= 0 || c.MaxSpeed > motion.DefaultMaxSpeed {
		return fmt.Errorf("%w: max speed %d not in (0, %d]", ErrInvalidConfig, c.MaxSpeed, motion.DefaultMaxSpeed)
	}
	if !(c.DecelRate > 0 && c.DecelRate <= 1) {
		return fmt.Errorf("%w: %v", motion.ErrInvalidDecelRate, c.DecelRate)
	}
	if !(c.Offset >= 0 && c.Offset <= 1) {
		return fmt.Errorf("%w: offset %v must be in [0, 1]", ErrInvalidConfig, c.Offset)
	}
	if c.TurnDistance < 0 || c.ReverseDistance < 0 || math.IsNaN(c.TurnDistance) || math.IsNaN(c.ReverseDistance) {
		return fmt.Errorf("%w: distances must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SamplerConfig derives the sonar sampler parameters.
func (c *Config) SamplerConfig() (sonar.SamplerConfig, error) {
	unit, err := sonar.ParseUnit(c.Unit)
	if err != nil {
		return sonar.SamplerConfig{}, err
	}
	if c.SerialTimeout <= 0 {
		return sonar.SamplerConfig{}, fmt.Errorf("%w: serial timeout %v", ErrInvalidDuration, c.SerialTimeout)
	}
	conf := sonar.SamplerConfig{
		BufferSize: c.BufferSize,
		Threshold:  c.Threshold,
		UpperBound: c.UpperBound,
		Unit:       unit,
		Timeout:    c.SerialTimeout,
	}
	return conf, conf.Validate()
}

// PortOptions derives the serial port options.
func (c *Config) PortOptions() sonar.PortOptions {
	opts := sonar.DefaultPortOptions()
	opts.Device = c.Device
	return opts
}

// OpenSampler opens the serial port and creates the sampler on it.
func (c *Config) OpenSampler() (*sonar.Sampler, error) {
	conf, err := c.SamplerConfig()
	if err != nil {
		return nil, err
	}
	return sonar.OpenSampler(c.PortOptions(), conf)
}

// NewCoordinator validates the config and creates a Coordinator.
func (c *Config) NewCoordinator(sensor Measurer, drv motion.Driver) (*Coordinator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewCoordinator(*c, sensor, motion.NewController(drv, c.MaxSpeed)), nil
}
