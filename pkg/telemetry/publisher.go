package telemetry

import (
	"context"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/rover.go/pkg/avoidance"
	"github.com/robotalks/rover.go/pkg/framework"
	"github.com/robotalks/rover.go/pkg/motion"
	"github.com/robotalks/rover.go/pkg/sonar"
)

// Status payloads.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Remote commands.
const (
	CommandStart = "start"
	CommandStop  = "stop"
)

// Topics are relative to the queue prefix.
type Topics struct {
	Reading string
	State   string
	Status  string
	Command string
}

// TopicsFor returns the topics of rover id.
func TopicsFor(id string) Topics {
	root := "rover/" + id + "/"
	return Topics{
		Reading: root + "reading",
		State:   root + "state",
		Status:  root + "status",
		Command: root + "cmd",
	}
}

// Sink publishes payloads, Queue is one.
type Sink interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Publisher implements avoidance.Observer. Publishing is asynchronous
// so the coordinator tasks are never held up by the broker.
type Publisher struct {
	Sink   Sink
	Topics Topics
	Now    func() time.Time
}

// NewPublisher creates a Publisher.
func NewPublisher(sink Sink, topics Topics) *Publisher {
	return &Publisher{Sink: sink, Topics: topics, Now: time.Now}
}

// ReadingMeasured implements avoidance.Observer.
func (p *Publisher) ReadingMeasured(r sonar.Reading) {
	p.publish(p.Topics.Reading, NewReadingMsg(r, p.Now()), false)
}

// StateChanged implements avoidance.Observer.
func (p *Publisher) StateChanged(state avoidance.State, cmd motion.Command) {
	p.publish(p.Topics.State, NewStateMsg(state, cmd, p.Now()), true)
}

func (p *Publisher) publish(topic string, msg proto.Message, retain bool) {
	payload, err := proto.Marshal(msg)
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	var qos byte
	if retain {
		qos = 1
	}
	p.Sink.PubWith(topic, payload, qos, retain)
}

// Remote runs start/stop commands received on the command topic.
type Remote struct {
	Target framework.Startable

	cmds chan string
}

// NewRemote creates a Remote.
func NewRemote(target framework.Startable) *Remote {
	return &Remote{Target: target, cmds: make(chan string, 4)}
}

// Attach subscribes to the command topic of the queue.
func (r *Remote) Attach(q *Queue, topics Topics) {
	q.Sub(topics.Command, r.HandleMessage)
}

// HandleMessage queues a command, it never blocks the MQTT client.
func (r *Remote) HandleMessage(topic string, payload []byte) {
	cmd := strings.ToLower(strings.TrimSpace(string(payload)))
	if cmd != CommandStart && cmd != CommandStop {
		glog.Warningf("unknown command %q on %s", cmd, topic)
		return
	}
	select {
	case r.cmds <- cmd:
	default:
		glog.Warningf("command %q dropped, too many pending", cmd)
	}
}

// Run implements framework.Runnable.
func (r *Remote) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-r.cmds:
			var err error
			switch cmd {
			case CommandStart:
				err = r.Target.Start()
			case CommandStop:
				err = r.Target.Stop()
			}
			if err != nil {
				glog.Errorf("remote %s: %v", cmd, err)
			} else {
				glog.Infof("remote %s", cmd)
			}
		}
	}
}
