package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/rover.go/pkg/avoidance"
	"github.com/robotalks/rover.go/pkg/cli/sh"
	"github.com/robotalks/rover.go/pkg/drivers/mc33926"
	"github.com/robotalks/rover.go/pkg/motion"
)

func init() {
	avoidance.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := avoidance.NewConfig()
	s := sh.New(conf)
	s.OpenDriver = func() (motion.Driver, error) {
		return mc33926.Open()
	}
	s.OpenSensor = func() (sh.Sensor, error) {
		return conf.OpenSampler()
	}
	if err := s.Run(flag.Args()...); err != nil {
		glog.Exit(err)
	}
}
