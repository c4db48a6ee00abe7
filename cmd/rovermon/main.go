package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"reflect"
	"strings"

	"github.com/robotalks/rover.go/pkg/telemetry"
)

func init() {
	telemetry.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := telemetry.NewConfig()
	if !conf.Enabled() {
		log.Fatalln("-mqtt or ROVER_MQTT_URL is required")
	}
	opts, prefix, err := telemetry.ClientOptionsFromURL(conf.BrokerURL, "")
	if err != nil {
		log.Fatalln(err)
	}
	q := telemetry.NewQueue(opts, prefix)
	q.Sub("rover/#", func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/status") || strings.HasSuffix(topic, "/cmd") {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		msg, err := telemetry.DecodeMessage(topic, payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
	})
	if err := q.Connect(conf.ConnectTimeout); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
