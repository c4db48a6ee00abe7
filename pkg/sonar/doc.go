// Package sonar reads MaxSonar range sensors multiplexed on one serial line.
package sonar

// Each sensor reports its distance as an indicator byte followed by ASCII
// decimal millimeters, e.g. "L1234\rR0987\r". There's no terminator, a frame
// ends where the next indicator starts, so a frame is only complete once the
// following frame begins.
//
// Parser decodes frames byte by byte, FrameReader drives it from a port with
// a deadline, and Sampler buffers samples per channel into filtered Readings.
