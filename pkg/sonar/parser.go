package sonar

import (
	"bytes"
	"strconv"
)

// MaxPayloadLen is the longest distance payload accepted in a frame.
// Longer payloads mean a lost indicator and the frame is dropped.
const MaxPayloadLen = 8

// ParseResult indicates the result after one parsing step.
type ParseResult int

const (
	// ParseMore means the byte was consumed and no frame completed.
	ParseMore ParseResult = iota
	// ParseSample means a frame completed and decoded into a sample.
	ParseSample
	// ParseDropped means a frame completed but was discarded.
	ParseDropped
)

type parseState int

const (
	stateSeek    parseState = iota // discard until an indicator
	statePayload                   // collecting payload after indicator
)

// Parser decodes the sonar byte stream into samples.
// The zero value is ready to use.
type Parser struct {
	state    parseState
	channel  Channel
	payload  []byte
	overflow bool
	primed   bool
}

// Reset drops any partial frame. The first frame completed after
// Reset is discarded again as it may have been truncated.
func (p *Parser) Reset() {
	p.state = stateSeek
	p.payload = p.payload[:0]
	p.overflow = false
	p.primed = false
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (Sample, ParseResult) {
	ch := Channel(b)
	if !ch.IsValid() {
		if p.state == statePayload {
			if len(p.payload) < MaxPayloadLen {
				p.payload = append(p.payload, b)
			} else {
				p.overflow = true
			}
		}
		return Sample{}, ParseMore
	}
	if p.state == stateSeek {
		p.begin(ch)
		return Sample{}, ParseMore
	}
	s, ok := p.decode()
	p.begin(ch)
	if !p.primed {
		p.primed = true
		return Sample{}, ParseDropped
	}
	if !ok {
		return Sample{}, ParseDropped
	}
	return s, ParseSample
}

func (p *Parser) begin(ch Channel) {
	p.state, p.channel = statePayload, ch
	p.payload = p.payload[:0]
	p.overflow = false
}

func (p *Parser) decode() (Sample, bool) {
	if p.overflow {
		return Sample{}, false
	}
	digits := bytes.TrimSpace(p.payload)
	if len(digits) == 0 {
		return Sample{}, false
	}
	for _, b := range digits {
		if b < '0' || b > '9' {
			return Sample{}, false
		}
	}
	mm, err := strconv.Atoi(string(digits))
	if err != nil {
		return Sample{}, false
	}
	return Sample{Channel: p.channel, Millimeters: mm}, true
}
