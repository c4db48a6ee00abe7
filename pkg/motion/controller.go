package motion

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultMaxSpeed is the PWM range of the MC33926 driver,
// 19.2 MHz / 2 / 480 = 20 kHz.
const DefaultMaxSpeed = 480

// ErrInvalidDecelRate indicates the ramp can't make progress.
var ErrInvalidDecelRate = errors.New("decel rate must be in (0, 1]")

// Controller clamps and issues commands to a Driver and
// remembers what was last issued.
type Controller struct {
	Driver   Driver
	MaxSpeed int
	// Sleep waits between ramp steps, time.Sleep if nil.
	Sleep func(time.Duration)

	lock    sync.Mutex
	current Command
	enabled bool
}

// NewController creates a Controller.
func NewController(drv Driver, maxSpeed int) *Controller {
	if maxSpeed <= 0 {
		maxSpeed = DefaultMaxSpeed
	}
	return &Controller{Driver: drv, MaxSpeed: maxSpeed}
}

// Enable enables the motors.
func (c *Controller) Enable() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.Driver.Enable(); err != nil {
		return err
	}
	c.enabled = true
	return nil
}

// Disable disables the motors.
func (c *Controller) Disable() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.Driver.Disable(); err != nil {
		return err
	}
	c.enabled = false
	return nil
}

// Enabled tells if motors were enabled last.
func (c *Controller) Enabled() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.enabled
}

// Current returns the command issued last.
func (c *Controller) Current() Command {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current
}

// SetSpeeds clamps speeds to [0, MaxSpeed] and issues both wheels at once.
// Negative speeds are flipped, direction is carried by the Direction values.
func (c *Controller) SetSpeeds(leftSpeed int, leftDir Direction, rightSpeed int, rightDir Direction) error {
	return c.Issue(Command{
		LeftSpeed:  leftSpeed,
		LeftDir:    leftDir,
		RightSpeed: rightSpeed,
		RightDir:   rightDir,
	})
}

// Issue issues a command after clamping.
func (c *Controller) Issue(cmd Command) error {
	cmd.LeftSpeed = c.clamp(cmd.LeftSpeed)
	cmd.RightSpeed = c.clamp(cmd.RightSpeed)
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.Driver.SetSpeeds(cmd.LeftSpeed, cmd.LeftDir, cmd.RightSpeed, cmd.RightDir); err != nil {
		return fmt.Errorf("set speeds %s: %w", cmd, err)
	}
	c.current = cmd
	glog.V(4).Infof("motion %s", cmd)
	return nil
}

// RampTo decelerates from the current command to a stop in fixed steps
// of decelRate, waiting stepInterval after each, then issues cmd.
func (c *Controller) RampTo(cmd Command, decelRate float64, stepInterval time.Duration) error {
	if !(decelRate > 0 && decelRate <= 1) {
		return ErrInvalidDecelRate
	}
	from := c.Current()
	if !from.IsStopped() && from != cmd {
		steps := int(math.Ceil(1 / decelRate))
		for i := 0; i <= steps; i++ {
			factor := 1 - float64(i)*decelRate
			if factor < 0 {
				factor = 0
			}
			if err := c.Issue(from.Scale(factor)); err != nil {
				return err
			}
			c.sleep(stepInterval)
		}
	}
	return c.Issue(cmd)
}

func (c *Controller) clamp(speed int) int {
	if speed < 0 {
		speed = -speed
	}
	// -math.MinInt overflows to itself.
	if speed > c.MaxSpeed || speed < 0 {
		speed = c.MaxSpeed
	}
	return speed
}

func (c *Controller) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if fn := c.Sleep; fn != nil {
		fn(d)
	} else {
		time.Sleep(d)
	}
}
