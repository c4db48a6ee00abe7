package sonar

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultDevice is the UART of the Raspberry Pi header.
const DefaultDevice = "/dev/ttyAMA0"

// PortOptions describes the serial line the sonars are wired to.
type PortOptions struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	// ReadTimeout bounds a single read so frame deadlines are honored
	// on a silent line.
	ReadTimeout time.Duration
}

// DefaultPortOptions returns 9600 8N1, which is what MaxSonar units speak.
func DefaultPortOptions() PortOptions {
	return PortOptions{
		Device:      DefaultDevice,
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		ReadTimeout: 100 * time.Millisecond,
	}
}

// SerialMode converts the options into serial.Mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
	}
	if mode.BaudRate <= 0 {
		mode.BaudRate = 9600
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d: must be between 5 and 8", mode.DataBits)
	}
	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	switch strings.ToUpper(strings.TrimSpace(o.Parity)) {
	case "", "N", "NONE":
		mode.Parity = serial.NoParity
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return mode, nil
}

// OpenPort opens the serial device with a bounded read timeout.
func OpenPort(o PortOptions) (serial.Port, error) {
	mode, err := o.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(o.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Device, err)
	}
	timeout := o.ReadTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", o.Device, err)
	}
	return port, nil
}

// OpenSampler opens the port and stacks a FrameReader and a Sampler on it.
func OpenSampler(o PortOptions, conf SamplerConfig) (*Sampler, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	port, err := OpenPort(o)
	if err != nil {
		return nil, err
	}
	reader := NewFrameReader(port)
	reader.Timeout = conf.Timeout
	return NewSampler(reader, conf)
}
