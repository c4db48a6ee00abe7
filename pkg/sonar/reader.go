package sonar

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout is how long to wait for a valid frame.
const DefaultTimeout = 3 * time.Second

// SampleSource produces raw samples.
type SampleSource interface {
	// Next returns the next decoded sample, or fails once deadline passes.
	// It returns ctx.Err() if ctx is done first.
	Next(ctx context.Context, deadline time.Time) (Sample, error)
}

// FrameReader reads samples from a serial-like port.
//
// Port.Read is expected to return periodically even without data, either
// with 0 bytes or a timeout error (see PortOptions.ReadTimeout), so the
// deadline can be checked.
type FrameReader struct {
	Port    io.ReadCloser
	Timeout time.Duration

	parser    Parser
	buf       [1]byte
	closed    int32
	closeOnce sync.Once
	closeErr  error
}

// NewFrameReader creates a FrameReader.
func NewFrameReader(port io.ReadCloser) *FrameReader {
	return &FrameReader{Port: port, Timeout: DefaultTimeout}
}

// ReadSample reads the next sample within Timeout.
func (r *FrameReader) ReadSample() (Sample, error) {
	return r.Next(context.Background(), time.Now().Add(r.Timeout))
}

// Next implements SampleSource. The port is closed on timeout but
// stays open when ctx is canceled.
func (r *FrameReader) Next(ctx context.Context, deadline time.Time) (Sample, error) {
	if atomic.LoadInt32(&r.closed) != 0 {
		return Sample{}, os.ErrClosed
	}
	start := time.Now()
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		n, err := r.Port.Read(r.buf[:])
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return Sample{}, fmt.Errorf("read sonar port: %w", err)
		}
		if n == 0 {
			continue
		}
		s, res := r.parser.Parse(r.buf[0])
		switch res {
		case ParseSample:
			glog.V(4).Infof("sample %s %dmm", s.Channel, s.Millimeters)
			return s, nil
		case ParseDropped:
			glog.V(4).Info("frame dropped")
		}
	}
	r.Close()
	after := deadline.Sub(start)
	if after < 0 {
		after = 0
	}
	return Sample{}, &TimeoutError{After: after}
}

// Close implements io.Closer. It may be called while Next is blocked
// in a read to unblock it.
func (r *FrameReader) Close() error {
	r.closeOnce.Do(func() {
		atomic.StoreInt32(&r.closed, 1)
		r.closeErr = r.Port.Close()
	})
	return r.closeErr
}
