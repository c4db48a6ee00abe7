package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/timestamp"

	"github.com/robotalks/rover.go/pkg/avoidance"
	"github.com/robotalks/rover.go/pkg/motion"
	"github.com/robotalks/rover.go/pkg/sonar"
)

// ReadingMsg is published for every filtered sonar reading.
type ReadingMsg struct {
	Channel     string               `protobuf:"bytes,1,opt,name=channel,proto3" json:"channel,omitempty"`
	Value       float64              `protobuf:"fixed64,2,opt,name=value,proto3" json:"value,omitempty"`
	Unit        string               `protobuf:"bytes,3,opt,name=unit,proto3" json:"unit,omitempty"`
	Millimeters float64              `protobuf:"fixed64,4,opt,name=millimeters,proto3" json:"millimeters,omitempty"`
	Time        *timestamp.Timestamp `protobuf:"bytes,5,opt,name=time,proto3" json:"time,omitempty"`
}

// Reset implements proto.Message.
func (m *ReadingMsg) Reset() { *m = ReadingMsg{} }

// String implements proto.Message.
func (m *ReadingMsg) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*ReadingMsg) ProtoMessage() {}

// StateMsg is published when the motion task changes state.
type StateMsg struct {
	State         string               `protobuf:"bytes,1,opt,name=state,proto3" json:"state,omitempty"`
	LeftSpeed     int32                `protobuf:"varint,2,opt,name=left_speed,json=leftSpeed,proto3" json:"left_speed,omitempty"`
	LeftBackward  bool                 `protobuf:"varint,3,opt,name=left_backward,json=leftBackward,proto3" json:"left_backward,omitempty"`
	RightSpeed    int32                `protobuf:"varint,4,opt,name=right_speed,json=rightSpeed,proto3" json:"right_speed,omitempty"`
	RightBackward bool                 `protobuf:"varint,5,opt,name=right_backward,json=rightBackward,proto3" json:"right_backward,omitempty"`
	Time          *timestamp.Timestamp `protobuf:"bytes,6,opt,name=time,proto3" json:"time,omitempty"`
}

// Reset implements proto.Message.
func (m *StateMsg) Reset() { *m = StateMsg{} }

// String implements proto.Message.
func (m *StateMsg) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*StateMsg) ProtoMessage() {}

// NewReadingMsg converts a reading.
func NewReadingMsg(r sonar.Reading, at time.Time) *ReadingMsg {
	return &ReadingMsg{
		Channel:     r.Channel.String(),
		Value:       r.Value,
		Unit:        string(r.Unit),
		Millimeters: r.Millimeters(),
		Time:        timestampProto(at),
	}
}

// NewStateMsg converts a state change.
func NewStateMsg(state avoidance.State, cmd motion.Command, at time.Time) *StateMsg {
	return &StateMsg{
		State:         state.String(),
		LeftSpeed:     int32(cmd.LeftSpeed),
		LeftBackward:  cmd.LeftDir == motion.Backward,
		RightSpeed:    int32(cmd.RightSpeed),
		RightBackward: cmd.RightDir == motion.Backward,
		Time:          timestampProto(at),
	}
}

func timestampProto(t time.Time) *timestamp.Timestamp {
	ts, err := ptypes.TimestampProto(t)
	if err != nil {
		return ptypes.TimestampNow()
	}
	return ts
}

// DecodeMessage decodes the payload of a reading or state topic.
func DecodeMessage(topic string, payload []byte) (proto.Message, error) {
	var msg proto.Message
	switch {
	case strings.HasSuffix(topic, "/reading"):
		msg = &ReadingMsg{}
	case strings.HasSuffix(topic, "/state"):
		msg = &StateMsg{}
	default:
		return nil, fmt.Errorf("no message on topic %q", topic)
	}
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
