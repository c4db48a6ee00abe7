package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/rover.go/pkg/avoidance"
	fx "github.com/robotalks/rover.go/pkg/framework"
	"github.com/robotalks/rover.go/pkg/sonar"
)

var (
	raw   bool
	count int
)

func init() {
	avoidance.SetupFlags()
	flag.BoolVar(&raw, "raw", raw, "Print raw samples instead of filtered readings.")
	flag.IntVar(&count, "n", count, "Stop after this many lines, 0 for unlimited.")
}

func probe(sampler *sonar.Sampler) error {
	for n := 0; count <= 0 || n < count; n++ {
		if raw {
			sample, err := sampler.Sample()
			if err != nil {
				return err
			}
			fmt.Printf("%s: %dmm\n", sample.Channel, sample.Millimeters)
			continue
		}
		reading, err := sampler.Measure()
		if err != nil {
			return err
		}
		fmt.Println(reading)
	}
	return nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	sampler, err := avoidance.NewConfig().OpenSampler()
	if err != nil {
		glog.Exitf("open sonar: %v", err)
	}
	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedFunc("probe", func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, sampler, func() error {
			return probe(sampler)
		})
	}))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
