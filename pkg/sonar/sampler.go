package sonar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/golang/glog"
)

// SamplerConfig defines how samples are filtered into readings.
type SamplerConfig struct {
	// BufferSize is the number of samples averaged into one reading.
	BufferSize int
	// Threshold is the tolerated deviation from the mean, as a fraction
	// of the mean. Samples beyond it are outliers.
	Threshold float64
	// UpperBound (mm) discards any sample above it as noise.
	UpperBound int
	// Unit of produced readings.
	Unit Unit
	// Timeout bounds the wait for a single valid sample.
	Timeout time.Duration
}

// Defaults
const (
	DefaultBufferSize = 3
	DefaultThreshold  = 0.2
	DefaultUpperBound = 4500
)

// DefaultSamplerConfig returns the sensor defaults.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		BufferSize: DefaultBufferSize,
		Threshold:  DefaultThreshold,
		UpperBound: DefaultUpperBound,
		Unit:       Millimeter,
		Timeout:    DefaultTimeout,
	}
}

// Validate checks the parameters.
func (c SamplerConfig) Validate() error {
	if !c.Unit.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidUnit, c.Unit)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("%w: buffer size %d must be positive", ErrInvalidConfig, c.BufferSize)
	}
	if c.Threshold < 0 || math.IsNaN(c.Threshold) {
		return fmt.Errorf("%w: threshold %v must not be negative", ErrInvalidConfig, c.Threshold)
	}
	if c.UpperBound < 0 {
		return fmt.Errorf("%w: upper bound %d must not be negative", ErrInvalidConfig, c.UpperBound)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %v must be positive", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Sampler turns raw samples into filtered per-channel readings.
// It's not safe for concurrent use.
type Sampler struct {
	Source SampleSource
	Config SamplerConfig

	buffers map[Channel][]int
}

// NewSampler creates a Sampler.
func NewSampler(src SampleSource, conf SamplerConfig) (*Sampler, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	s := &Sampler{
		Source:  src,
		Config:  conf,
		buffers: make(map[Channel][]int, len(Channels)),
	}
	for _, ch := range Channels {
		s.buffers[ch] = make([]int, 0, conf.BufferSize)
	}
	return s, nil
}

// Sample returns the next sample within UpperBound.
func (s *Sampler) Sample() (Sample, error) {
	return s.SampleContext(context.Background())
}

// SampleContext is Sample which gives up when ctx is done.
func (s *Sampler) SampleContext(ctx context.Context) (Sample, error) {
	deadline := time.Now().Add(s.Config.Timeout)
	for {
		sample, err := s.Source.Next(ctx, deadline)
		if err != nil {
			var te *TimeoutError
			if errors.As(err, &te) {
				te.After = s.Config.Timeout
			}
			return Sample{}, err
		}
		if sample.Millimeters <= s.Config.UpperBound {
			return sample, nil
		}
		glog.V(4).Infof("sample %s %dmm out of range", sample.Channel, sample.Millimeters)
	}
}

// Measure samples until one channel fills its buffer and yields a reading.
func (s *Sampler) Measure() (Reading, error) {
	return s.MeasureContext(context.Background())
}

// MeasureContext is Measure which gives up when ctx is done.
// Samples buffered so far are kept for the next call.
func (s *Sampler) MeasureContext(ctx context.Context) (Reading, error) {
	for {
		sample, err := s.SampleContext(ctx)
		if err != nil {
			return Reading{}, err
		}
		buf := append(s.buffers[sample.Channel], sample.Millimeters)
		if len(buf) < s.Config.BufferSize {
			s.buffers[sample.Channel] = buf
			continue
		}
		mm, ok := filterMean(buf, s.Config.Threshold)
		s.buffers[sample.Channel] = buf[:0]
		if !ok {
			glog.V(2).Infof("%s: all of %v rejected as outliers", sample.Channel, buf)
			continue
		}
		r := Reading{
			Channel: sample.Channel,
			Value:   s.Config.Unit.FromMillimeters(mm),
			Unit:    s.Config.Unit,
		}
		glog.V(2).Infof("reading %s", r)
		return r, nil
	}
}

// Close closes the source if it's closable.
func (s *Sampler) Close() error {
	if closer, ok := s.Source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// filterMean averages values after dropping those deviating from
// the mean by more than mean*threshold. It reports false when
// nothing is left.
func filterMean(values []int, threshold float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	mean := average(values, func(int) bool { return true })
	tolerance := mean * threshold
	var kept int
	result := average(values, func(v int) bool {
		if math.Abs(float64(v)-mean) > tolerance {
			return false
		}
		kept++
		return true
	})
	return result, kept > 0
}

func average(values []int, keep func(int) bool) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if keep(v) {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
