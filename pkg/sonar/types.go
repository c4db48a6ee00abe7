package sonar

import "fmt"

// Channel identifies which sonar produced a sample. The value is the
// indicator byte on the wire.
type Channel byte

// Channels
const (
	ChannelLeft  Channel = 'L'
	ChannelRight Channel = 'R'
)

// Channels lists all valid channels.
var Channels = []Channel{ChannelLeft, ChannelRight}

// IsValid checks if it's a known channel.
func (c Channel) IsValid() bool {
	return c == ChannelLeft || c == ChannelRight
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	switch c {
	case ChannelLeft:
		return "left"
	case ChannelRight:
		return "right"
	}
	return fmt.Sprintf("channel(%#x)", byte(c))
}

// Sample is a single raw distance reported by one sonar.
type Sample struct {
	Channel     Channel
	Millimeters int
}

// Reading is a filtered distance of one channel in Unit.
type Reading struct {
	Channel Channel
	Value   float64
	Unit    Unit
}

// Millimeters converts the reading back to millimeters.
func (r Reading) Millimeters() float64 {
	return r.Unit.ToMillimeters(r.Value)
}

// String implements fmt.Stringer.
func (r Reading) String() string {
	return fmt.Sprintf("%s: %7.2f%s", r.Channel, r.Value, r.Unit)
}
