// Package mc33926 drives the Pololu dual MC33926 motor driver board
// for Raspberry Pi.
//
// Pins are BCM numbers; M1 is the left wheel and M2 the right one.
package mc33926

import (
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"github.com/robotalks/rover.go/pkg/motion"
)

// Pin is the subset of gpio.PinIO used by the driver.
type Pin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// PinNames lists the pins of one motor.
type PinNames struct {
	PWM, Dir, Enable string
}

// Default pin assignment of the board.
var (
	DefaultLeftPins  = PinNames{PWM: "12", Dir: "24", Enable: "22"}
	DefaultRightPins = PinNames{PWM: "13", Dir: "25", Enable: "23"}
)

// FullSpeed is the speed driven at 100% duty. It's the range of the
// board, a lower limit is applied by motion.Controller.
const FullSpeed = motion.DefaultMaxSpeed

// DefaultFrequency is the PWM frequency, inaudible and within
// the 20 kHz limit of the MC33926.
const DefaultFrequency = 20 * physic.KiloHertz

// Motor is one channel of the driver.
type Motor struct {
	PWM, Dir, Enable Pin
}

func (m *Motor) enable(on bool) error {
	return m.Enable.Out(gpio.Level(on))
}

func (m *Motor) set(duty gpio.Duty, dir motion.Direction, freq physic.Frequency) error {
	if err := m.Dir.Out(gpio.Level(dir == motion.Backward)); err != nil {
		return err
	}
	return m.PWM.PWM(duty, freq)
}

// Driver implements motion.Driver.
type Driver struct {
	Left, Right Motor
	// MaxSpeed maps to gpio.DutyMax.
	MaxSpeed  int
	Frequency physic.Frequency
}

var _ motion.Driver = (*Driver)(nil)

// New creates a Driver on pins.
func New(left, right Motor) *Driver {
	return &Driver{Left: left, Right: right, MaxSpeed: FullSpeed, Frequency: DefaultFrequency}
}

// Open initializes the host and looks up the default pins.
func Open() (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	left, err := lookupMotor(DefaultLeftPins)
	if err != nil {
		return nil, err
	}
	right, err := lookupMotor(DefaultRightPins)
	if err != nil {
		return nil, err
	}
	drv := New(left, right)
	if err := drv.Disable(); err != nil {
		return nil, err
	}
	glog.Infof("mc33926 ready left=%+v right=%+v", DefaultLeftPins, DefaultRightPins)
	return drv, nil
}

func lookupMotor(names PinNames) (m Motor, err error) {
	if m.PWM, err = lookupPin(names.PWM); err != nil {
		return
	}
	if m.Dir, err = lookupPin(names.Dir); err != nil {
		return
	}
	m.Enable, err = lookupPin(names.Enable)
	return
}

func lookupPin(name string) (Pin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named: %s", name)
	}
	return p, nil
}

// Enable implements motion.Driver, enable pins are active-high.
func (d *Driver) Enable() error {
	return d.enable(true)
}

// Disable implements motion.Driver.
func (d *Driver) Disable() error {
	return d.enable(false)
}

func (d *Driver) enable(on bool) error {
	if err := d.Left.enable(on); err != nil {
		return fmt.Errorf("left motor: %w", err)
	}
	if err := d.Right.enable(on); err != nil {
		return fmt.Errorf("right motor: %w", err)
	}
	return nil
}

// SetSpeeds implements motion.Driver.
func (d *Driver) SetSpeeds(leftSpeed int, leftDir motion.Direction, rightSpeed int, rightDir motion.Direction) error {
	if err := d.Left.set(d.duty(leftSpeed), leftDir, d.Frequency); err != nil {
		return fmt.Errorf("left motor: %w", err)
	}
	if err := d.Right.set(d.duty(rightSpeed), rightDir, d.Frequency); err != nil {
		return fmt.Errorf("right motor: %w", err)
	}
	return nil
}

// duty maps [0, MaxSpeed] onto [0, gpio.DutyMax].
func (d *Driver) duty(speed int) gpio.Duty {
	if speed < 0 {
		speed = 0
	}
	if speed > d.MaxSpeed {
		speed = d.MaxSpeed
	}
	return gpio.Duty(int64(gpio.DutyMax) * int64(speed) / int64(d.MaxSpeed))
}
