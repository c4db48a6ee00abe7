// Package avoidance keeps a rover moving while steering away from
// obstacles reported by two sonars.
package avoidance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rover.go/pkg/framework"
	"github.com/robotalks/rover.go/pkg/motion"
	"github.com/robotalks/rover.go/pkg/sonar"
)

// ErrUnknownChannel is fatal, the rover must not keep moving blind.
var ErrUnknownChannel = errors.New("unknown sonar channel")

// State is the state of the motion task.
type State int

// States
const (
	Stopped State = iota
	Forward
	Reversing
	Turning
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Forward:
		return "forward"
	case Reversing:
		return "reversing"
	case Turning:
		return "turning"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Measurer produces filtered readings, sonar.Sampler is one.
// MeasureContext returns ctx.Err() once ctx is canceled.
type Measurer interface {
	MeasureContext(ctx context.Context) (sonar.Reading, error)
}

// Observer is notified from the coordinator tasks, never under a lock.
// Implementations must not block.
type Observer interface {
	ReadingMeasured(sonar.Reading)
	StateChanged(State, motion.Command)
}

// Coordinator runs the sensing and motion tasks.
type Coordinator struct {
	Config   Config
	Sensor   Measurer
	Motion   *motion.Controller
	Observer Observer

	runLock sync.Mutex
	running bool

	lock          sync.Mutex
	cond          *sync.Cond
	latest        *sonar.Reading
	stopRequested bool
	cancel        context.CancelFunc
	stopCh        <-chan struct{}
	state         State
	done          chan struct{}
	err           error
}

// NewCoordinator creates a Coordinator, conf is expected to be valid.
func NewCoordinator(conf Config, sensor Measurer, ctl *motion.Controller) *Coordinator {
	c := &Coordinator{
		Config: conf,
		Sensor: sensor,
		Motion: ctl,
	}
	c.cond = sync.NewCond(&c.lock)
	return c
}

// Start spawns both tasks unless they are running.
func (c *Coordinator) Start() error {
	c.runLock.Lock()
	defer c.runLock.Unlock()
	if c.running && !c.terminated() {
		glog.Warning("avoidance already running")
		return nil
	}

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	c.lock.Lock()
	c.latest, c.stopRequested = nil, false
	c.cancel, c.stopCh = cancel, ctx.Done()
	c.done, c.err = done, nil
	c.lock.Unlock()

	runner := framework.NewRunnerWith(ctx).Go(
		framework.NamedFunc("sensing", c.sense),
		framework.NamedFunc("motion", c.move),
	)
	c.running = true
	go func() {
		err := runner.Wait()
		cancel()
		c.lock.Lock()
		c.err = err
		c.lock.Unlock()
		close(done)
		if err != nil {
			glog.Errorf("avoidance terminated: %v", err)
		}
	}()
	glog.Info("avoidance started")
	return nil
}

// Stop requests both tasks to stop and waits for them.
// Motors are disabled when it returns.
func (c *Coordinator) Stop() error {
	c.runLock.Lock()
	defer c.runLock.Unlock()
	if !c.running {
		glog.Warning("avoidance not running")
		return nil
	}
	c.requestStop()
	done := c.Done()
	<-done
	c.running = false
	err := c.Err()
	glog.Info("avoidance stopped")
	return err
}

// Done is closed when both tasks of the last Start terminated.
func (c *Coordinator) Done() <-chan struct{} {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.done
}

// Err returns the fatal error once Done is closed.
func (c *Coordinator) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.err
}

// State returns the current state of the motion task.
func (c *Coordinator) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

func (c *Coordinator) terminated() bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func (c *Coordinator) requestStop() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.stopRequested = true
	if c.cancel != nil {
		c.cancel()
	}
	c.cond.Broadcast()
}

func (c *Coordinator) stopping() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stopRequested
}

// sense ends with ctx, a sensor failure is fatal even while stopping.
func (c *Coordinator) sense(ctx context.Context) error {
	for {
		reading, err := c.Sensor.MeasureContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && c.stopping() {
				return nil
			}
			c.requestStop()
			return fmt.Errorf("measure: %w", err)
		}
		near := reading.Millimeters() < c.Config.TurnDistance
		if !c.publish(reading, near) {
			return nil
		}
		glog.V(2).Infof("sonar %s near=%v", reading, near)
		if c.Observer != nil {
			c.Observer.ReadingMeasured(reading)
		}
	}
}

// publish overwrites the pending reading if near, it returns false
// once stop is requested.
func (c *Coordinator) publish(reading sonar.Reading, near bool) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.stopRequested {
		return false
	}
	if near {
		c.latest = &reading
		c.cond.Broadcast()
	}
	return true
}

func (c *Coordinator) move(context.Context) (err error) {
	defer func() {
		if err != nil {
			c.requestStop()
		}
		if e := c.halt(); e != nil && err == nil {
			err = e
		}
	}()
	if err = c.Motion.Enable(); err != nil {
		return err
	}
	for {
		c.discardReading()
		if err = c.drive(Forward, c.forwardCommand(), 0); err != nil {
			return err
		}
		reading, ok := c.waitReading()
		if !ok {
			return nil
		}
		if err = c.react(reading); err != nil {
			return err
		}
		if c.stopping() {
			return nil
		}
	}
}

// discardReading drops a reading published while reacting,
// it describes what was in front before the turn.
func (c *Coordinator) discardReading() {
	c.lock.Lock()
	c.latest = nil
	c.lock.Unlock()
}

// waitReading waits for a reading or a stop request.
func (c *Coordinator) waitReading() (sonar.Reading, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.latest == nil && !c.stopRequested {
		c.cond.Wait()
	}
	if c.stopRequested {
		return sonar.Reading{}, false
	}
	reading := *c.latest
	c.latest = nil
	return reading, true
}

func (c *Coordinator) react(reading sonar.Reading) error {
	turn, err := c.turnCommand(reading.Channel)
	if err != nil {
		return err
	}
	glog.V(2).Infof("obstacle %s", reading)
	if reading.Millimeters() < c.Config.ReverseDistance {
		if err := c.drive(Reversing, c.backwardCommand(), c.Config.ReverseTime); err != nil {
			return err
		}
		if c.stopping() {
			return nil
		}
	}
	return c.drive(Turning, turn, c.Config.TurnTime)
}

func (c *Coordinator) drive(state State, cmd motion.Command, hold time.Duration) error {
	if err := c.Motion.RampTo(cmd, c.Config.DecelRate, c.Config.RampInterval); err != nil {
		return err
	}
	c.setState(state, cmd)
	if hold > 0 {
		c.lock.Lock()
		stopCh := c.stopCh
		c.lock.Unlock()
		timer := time.NewTimer(hold)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-stopCh:
		}
	}
	return nil
}

func (c *Coordinator) halt() error {
	err := c.Motion.Issue(motion.Stop)
	if e := c.Motion.Disable(); e != nil {
		err = e
	}
	c.setState(Stopped, motion.Stop)
	return err
}

func (c *Coordinator) setState(state State, cmd motion.Command) {
	c.lock.Lock()
	c.state = state
	c.lock.Unlock()
	glog.V(2).Infof("avoidance %s %s", state, cmd)
	if c.Observer != nil {
		c.Observer.StateChanged(state, cmd)
	}
}

func (c *Coordinator) speed(fraction float64) int {
	return int(float64(c.Config.MaxSpeed)*fraction + 0.5)
}

func (c *Coordinator) forwardCommand() motion.Command {
	return motion.Command{
		LeftSpeed:  c.Config.MaxSpeed,
		LeftDir:    motion.Forward,
		RightSpeed: c.speed(c.Config.Offset),
		RightDir:   motion.Forward,
	}
}

func (c *Coordinator) backwardCommand() motion.Command {
	return motion.Command{
		LeftSpeed:  c.Config.MaxSpeed,
		LeftDir:    motion.Backward,
		RightSpeed: c.speed(c.Config.Offset),
		RightDir:   motion.Backward,
	}
}

// turnCommand turns away from the channel that saw the obstacle.
func (c *Coordinator) turnCommand(ch sonar.Channel) (motion.Command, error) {
	left := motion.Command{RightSpeed: c.speed(c.Config.Offset)}
	right := motion.Command{LeftSpeed: c.Config.MaxSpeed}
	if c.Config.Flip {
		left, right = right, left
	}
	switch ch {
	case sonar.ChannelRight:
		return left, nil
	case sonar.ChannelLeft:
		return right, nil
	}
	return motion.Stop, fmt.Errorf("%w %s", ErrUnknownChannel, ch)
}
