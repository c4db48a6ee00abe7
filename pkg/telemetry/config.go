// Package telemetry mirrors the rover on a MQTT broker: readings and
// state changes are published, start/stop commands are received.
package telemetry

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// Config defines the MQTT connection.
type Config struct {
	// BrokerURL e.g. mqtt://host:port/topic-prefix/, empty disables telemetry.
	BrokerURL string
	// ID identifies the rover in topics.
	ID             string
	ConnectTimeout time.Duration
}

var defaultConfig = Config{
	ConnectTimeout: 10 * time.Second,
}

func init() {
	if val := os.Getenv("ROVER_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	defaultConfig.ID = RoverID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL, empty to disable.")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Rover ID used in MQTT topics.")
	flag.DurationVar(&defaultConfig.ConnectTimeout, "mqtt-connect-timeout", defaultConfig.ConnectTimeout, "MQTT connect timeout.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Enabled tells if a broker is configured.
func (c *Config) Enabled() bool {
	return c.BrokerURL != ""
}

// Topics returns the topics of the configured rover.
func (c *Config) Topics() Topics {
	return TopicsFor(c.ID)
}

// Connect creates the queue and connects it. The status topic is
// retained "online" and turns "offline" when the connection drops.
func (c *Config) Connect() (*Queue, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("rover id must be specified")
	}
	opts, prefix, err := ClientOptionsFromURL(c.BrokerURL, "rover-"+c.ID)
	if err != nil {
		return nil, err
	}
	topics := c.Topics()
	opts.SetWill(prefix+topics.Status, StatusOffline, 1, true)
	q := NewQueue(opts, prefix)
	if err := q.Connect(c.ConnectTimeout); err != nil {
		return nil, err
	}
	q.PubWith(topics.Status, []byte(StatusOnline), 1, true)
	return q, nil
}

// RoverID derives a stable ID from the machine ID.
func RoverID() string {
	id, err := machineid.ProtectedID("rover")
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		if host, err := os.Hostname(); err == nil {
			return host
		}
		return ""
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
