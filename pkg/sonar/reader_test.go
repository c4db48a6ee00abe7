package sonar

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type readResult struct {
	data []byte
	err  error
}

// scriptedPort replays reads, then either idles or repeats a filler byte.
type scriptedPort struct {
	lock   sync.Mutex
	reads  []readResult
	filler byte
	closed bool
}

func newScriptedPort(chunks ...string) *scriptedPort {
	p := &scriptedPort{}
	for _, c := range chunks {
		p.reads = append(p.reads, readResult{data: []byte(c)})
	}
	return p
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return 0, os.ErrClosed
	}
	if len(p.reads) == 0 {
		if p.filler != 0 {
			b[0] = p.filler
			return 1, nil
		}
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	r := &p.reads[0]
	if r.err != nil {
		p.reads = p.reads[1:]
		return 0, r.err
	}
	n := copy(b, r.data)
	if r.data = r.data[n:]; len(r.data) == 0 {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *scriptedPort) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	return nil
}

func (p *scriptedPort) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFrameReaderReadsSamples(t *testing.T) {
	port := newScriptedPort("garbage", "L1", "R100L2", "00R")
	r := NewFrameReader(port)
	r.Timeout = 50 * time.Millisecond

	s, err := r.ReadSample()
	require.NoError(t, err)
	require.Equal(t, Sample{ChannelRight, 100}, s)

	s, err = r.ReadSample()
	require.NoError(t, err)
	require.Equal(t, Sample{ChannelLeft, 200}, s)
	require.False(t, port.isClosed())
}

func TestFrameReaderTimeout(t *testing.T) {
	testCases := []struct {
		name string
		port *scriptedPort
	}{
		{name: "silent line", port: newScriptedPort()},
		{name: "only one frame", port: newScriptedPort("L100R")},
		{name: "noise without indicators", port: &scriptedPort{filler: '7'}},
		{name: "read timeouts", port: &scriptedPort{reads: []readResult{{err: timeoutErr{}}, {err: timeoutErr{}}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewFrameReader(tc.port)
			r.Timeout = 20 * time.Millisecond
			start := time.Now()
			_, err := r.ReadSample()
			require.Error(t, err)
			require.True(t, IsTimeout(err))
			require.True(t, os.IsTimeout(err))
			require.True(t, time.Since(start) >= r.Timeout)
			require.True(t, tc.port.isClosed())

			_, err = r.ReadSample()
			require.Equal(t, os.ErrClosed, err)
		})
	}
}

func TestFrameReaderReadError(t *testing.T) {
	errBoom := errors.New("boom")
	port := &scriptedPort{reads: []readResult{{data: []byte("L1")}, {err: errBoom}}}
	r := NewFrameReader(port)
	_, err := r.ReadSample()
	require.True(t, errors.Is(err, errBoom))
	require.False(t, IsTimeout(err))
}

func TestFrameReaderRecoversAfterReadTimeout(t *testing.T) {
	port := &scriptedPort{reads: []readResult{
		{data: []byte("L1R")},
		{err: timeoutErr{}},
		{data: []byte("42L")},
	}}
	r := NewFrameReader(port)
	s, err := r.ReadSample()
	require.NoError(t, err)
	require.Equal(t, Sample{ChannelRight, 42}, s)
}

func TestFrameReaderCanceledKeepsPortOpen(t *testing.T) {
	port := newScriptedPort()
	r := NewFrameReader(port)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := r.Next(ctx, time.Now().Add(time.Minute))
	require.Equal(t, context.Canceled, err)
	require.True(t, time.Since(start) < time.Second)
	require.False(t, port.isClosed())

	port.lock.Lock()
	port.reads = append(port.reads, readResult{data: []byte("L1R7L")})
	port.lock.Unlock()
	s, err := r.ReadSample()
	require.NoError(t, err)
	require.Equal(t, Sample{ChannelRight, 7}, s)
}

func TestFrameReaderExpiredDeadline(t *testing.T) {
	port := newScriptedPort("L1R2L")
	r := NewFrameReader(port)
	_, err := r.Next(context.Background(), time.Now().Add(-time.Second))
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	require.Equal(t, time.Duration(0), te.After)
	require.True(t, port.isClosed())
}
