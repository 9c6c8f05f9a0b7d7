package input

import (
	"context"
	"fmt"
	"sync"
)

// Sample is the datatype we want from our inputs.
type Sample = float64

// Buffer is one interleaved frame buffer. Sample i of channel c sits at
// index i*FrameSize+c.
type Buffer []Sample

// SessionConfig is the configuration for a session.
type SessionConfig struct {
	Device     Device  // device to open
	FrameSize  int     // number of channels per frame
	SampleSize int     // number of frames per buffer write
	SampleRate float64 // rate at which samples are read
}

// Device is the device that the backend supports.
type Device interface {
	fmt.Stringer
}

// ChannelCounter is implemented by devices that know their native capture
// channel count. Exec-piped devices deliver whatever channel count they are
// asked for and do not implement it.
type ChannelCounter interface {
	ChannelCount() int
}

// Session is the interface for an input session.
type Session interface {
	// Start starts the session and blocks until the context is canceled or
	// the input dries up. Each time a full buffer has been written into dst
	// (under mu), the session signals kickChan.
	Start(ctx context.Context, dst Buffer, kickChan chan bool, mu *sync.Mutex) error
}

// MakeBuffer allocates an interleaved buffer for the given config.
func MakeBuffer(cfg SessionConfig) Buffer {
	return make(Buffer, cfg.SampleSize*cfg.FrameSize)
}

// EnsureBufferLen ensures that the given buffer matches the config.
func EnsureBufferLen(cfg SessionConfig, buf Buffer) bool {
	return len(buf) == cfg.SampleSize*cfg.FrameSize
}

// CopyBuffer copies src into dst for processing outside the input lock.
func CopyBuffer(dst, src Buffer) {
	copy(dst, src)
}
