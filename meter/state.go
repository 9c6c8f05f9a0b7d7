// Package meter implements the level-analysis core: per-buffer analysis of
// interleaved audio frames and the shared state bridging the audio side to
// the polling side.
package meter

import (
	"sync"

	"github.com/standby-cli/standby/dsp"
)

// Snapshot is one coherent view of the meter state, with one slot per
// monitored channel.
type Snapshot struct {
	CurrentDB  []float64 // instantaneous peak-derived dB
	SmoothedDB []float64 // first smoothing stage
	DisplayDB  []float64 // second smoothing stage, for drawing only
	Tripped    []bool    // sticky threshold flags
}

// NewSnapshot allocates a snapshot for the given channel count, initialized
// to the dB floor.
func NewSnapshot(channels int) *Snapshot {
	s := &Snapshot{
		CurrentDB:  make([]float64, channels),
		SmoothedDB: make([]float64, channels),
		DisplayDB:  make([]float64, channels),
		Tripped:    make([]bool, channels),
	}

	for ch := 0; ch < channels; ch++ {
		s.CurrentDB[ch] = dsp.MinDB
		s.SmoothedDB[ch] = dsp.MinDB
		s.DisplayDB[ch] = dsp.MinDB
	}

	return s
}

// TrippedChannels returns the positions (into the monitored set) of all
// channels whose flag is set.
func (s *Snapshot) TrippedChannels() []int {
	var out []int
	for ch, t := range s.Tripped {
		if t {
			out = append(out, ch)
		}
	}
	return out
}

// State is the shared meter state. The analyzer publishes whole buffers into
// it, the monitor reads coherent snapshots out of it. One mutex covers all
// four vectors so a reader can never see one buffer's levels with another
// buffer's trip flags.
type State struct {
	mu sync.Mutex

	currentDB  []float64
	smoothedDB []float64
	displayDB  []float64
	tripped    []bool
}

// NewState creates shared state for the given channel count. All levels
// start at the dB floor and no channel is tripped.
func NewState(channels int) *State {
	s := &State{
		currentDB:  make([]float64, channels),
		smoothedDB: make([]float64, channels),
		displayDB:  make([]float64, channels),
		tripped:    make([]bool, channels),
	}

	for ch := 0; ch < channels; ch++ {
		s.currentDB[ch] = dsp.MinDB
		s.smoothedDB[ch] = dsp.MinDB
		s.displayDB[ch] = dsp.MinDB
	}

	return s
}

// Channels returns the number of monitored channels.
func (s *State) Channels() int {
	return len(s.currentDB)
}

// Publish stores the results of one analyzed buffer. Trip flags are ORed in,
// never cleared, which keeps them sticky across buffers. The critical
// section is O(channels).
func (s *State) Publish(current, smoothed, display []float64, over []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.currentDB, current)
	copy(s.smoothedDB, smoothed)
	copy(s.displayDB, display)

	for ch, o := range over {
		if o {
			s.tripped[ch] = true
		}
	}
}

// Snapshot copies the current state into dst under one critical section.
func (s *State) Snapshot(dst *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(dst.CurrentDB, s.currentDB)
	copy(dst.SmoothedDB, s.smoothedDB)
	copy(dst.DisplayDB, s.displayDB)
	copy(dst.Tripped, s.tripped)
}

// ResetTripped clears all trip flags. Only the polling side calls this; the
// analyzer never clears a flag.
func (s *State) ResetTripped() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.tripped {
		s.tripped[ch] = false
	}
}
