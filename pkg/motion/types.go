// Package motion drives a differential pair of wheels.
package motion

import "fmt"

// Direction is the spinning direction of one wheel.
type Direction int

// Directions
const (
	Forward Direction = iota
	Backward
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "fwd"
	case Backward:
		return "bwd"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Command fully specifies speed and direction of both wheels.
type Command struct {
	LeftSpeed  int
	LeftDir    Direction
	RightSpeed int
	RightDir   Direction
}

// Stop is the command with both wheels at rest.
var Stop = Command{}

// IsStopped indicates both wheels are at rest.
func (c Command) IsStopped() bool {
	return c.LeftSpeed == 0 && c.RightSpeed == 0
}

// Scale returns the command with both speeds scaled by factor.
func (c Command) Scale(factor float64) Command {
	c.LeftSpeed = scaleSpeed(c.LeftSpeed, factor)
	c.RightSpeed = scaleSpeed(c.RightSpeed, factor)
	return c
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return fmt.Sprintf("L%d/%s R%d/%s", c.LeftSpeed, c.LeftDir, c.RightSpeed, c.RightDir)
}

func scaleSpeed(speed int, factor float64) int {
	return int(float64(speed)*factor + 0.5)
}

// Driver is the motor driver hardware.
// It's assumed to be synchronous and non-blocking.
type Driver interface {
	Enable() error
	Disable() error
	// SetSpeeds sets both wheels, speeds are within [0, max speed].
	SetSpeeds(leftSpeed int, leftDir Direction, rightSpeed int, rightDir Direction) error
}
