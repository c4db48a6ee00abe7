package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerWaitAggregatesErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	testCases := []struct {
		name   string
		errs   []error
		expect func(*testing.T, error)
	}{
		{
			name: "all clean",
			errs: []error{nil, context.Canceled},
			expect: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name: "single error returned as-is",
			errs: []error{nil, errA},
			expect: func(t *testing.T, err error) {
				require.Equal(t, errA, err)
			},
		},
		{
			name: "multiple errors aggregated",
			errs: []error{errA, errB},
			expect: func(t *testing.T, err error) {
				var agg *AggregatedError
				require.True(t, errors.As(err, &agg))
				require.Len(t, agg.Errors, 2)
				require.True(t, errors.Is(err, errA))
				require.True(t, errors.Is(err, errB))
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRunner()
			for n, err := range tc.errs {
				err := err
				r.Go(NamedFunc(string(rune('a'+n)), func(context.Context) error { return err }))
			}
			tc.expect(t, r.Wait())
		})
	}
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var canceled bool
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCancel(ctx, func() {
		canceled = true
		close(release)
	}, func() error {
		<-release
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.True(t, canceled)
}

type closeRecorder struct {
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestRunWithContextCloserClosesOnReturn(t *testing.T) {
	var closer closeRecorder
	errFn := errors.New("done")
	err := RunWithContextCloser(context.Background(), &closer, func() error { return errFn })
	require.Equal(t, errFn, err)
	require.Equal(t, 1, closer.closed)
}
