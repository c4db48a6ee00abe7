package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rover.go/pkg/avoidance"
	"github.com/robotalks/rover.go/pkg/drivers/mc33926"
	fx "github.com/robotalks/rover.go/pkg/framework"
	"github.com/robotalks/rover.go/pkg/telemetry"
)

var waitStart bool

func init() {
	avoidance.SetupFlags()
	telemetry.SetupFlags()
	flag.BoolVar(&waitStart, "wait-start", waitStart, "Wait for a remote start command instead of starting right away.")
}

// supervise keeps the coordinator until the context is canceled or it
// terminates with an error. A remote stop only idles the rover.
func supervise(ctx context.Context, coord *avoidance.Coordinator) error {
	if !waitStart {
		if err := coord.Start(); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return coord.Stop()
		case <-coord.Done():
			if err := coord.Err(); err != nil {
				coord.Stop()
				return err
			}
			select {
			case <-ctx.Done():
				return coord.Stop()
			case <-ticker.C:
			}
		case <-ticker.C:
		}
	}
}

func run() error {
	conf := avoidance.NewConfig()
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	tconf := telemetry.NewConfig()
	if waitStart && !tconf.Enabled() {
		return fmt.Errorf("-wait-start requires -mqtt")
	}

	sampler, err := conf.OpenSampler()
	if err != nil {
		return fmt.Errorf("open sonar: %w", err)
	}
	defer sampler.Close()
	drv, err := mc33926.Open()
	if err != nil {
		return fmt.Errorf("open motor driver: %w", err)
	}
	coord, err := conf.NewCoordinator(sampler, drv)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := fx.NewRunnerWith(ctx).HandleSignals()

	if tconf.Enabled() {
		q, err := tconf.Connect()
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer q.Close()
		topics := tconf.Topics()
		coord.Observer = telemetry.NewPublisher(q, topics)
		remote := telemetry.NewRemote(coord)
		remote.Attach(q, topics)
		runner.Go(fx.NamedRun("remote", remote))
		glog.Infof("telemetry %s as %s", tconf.BrokerURL, tconf.ID)
	}

	runner.Go(fx.NamedFunc("avoidance", func(ctx context.Context) error {
		defer cancel()
		return supervise(ctx, coord)
	}))
	return runner.Wait()
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		glog.Exit(err)
	}
	glog.Flush()
}
