package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-cli/standby/dsp"
)

func newTestAnalyzer(t *testing.T, frameSize int, channels []int, thresholdDB float64) (*Analyzer, *State) {
	t.Helper()

	state := NewState(len(channels))

	a, err := NewAnalyzer(AnalyzerConfig{
		FrameSize:   frameSize,
		Channels:    channels,
		ThresholdDB: thresholdDB,
		Smoother: dsp.NewSmoother(dsp.SmootherConfig{
			ChannelCount: len(channels),
			InitialValue: dsp.MinDB,
		}),
		State: state,
	})
	require.NoError(t, err)

	return a, state
}

// interleave builds a frameSize-channel buffer where every frame repeats the
// given per-channel sample values.
func interleave(frames, frameSize int, values []float64) []float64 {
	buf := make([]float64, frames*frameSize)
	for f := 0; f < frames; f++ {
		for c := 0; c < frameSize; c++ {
			buf[f*frameSize+c] = values[c]
		}
	}
	return buf
}

func TestNewAnalyzerValidation(t *testing.T) {
	state := NewState(1)
	sm := dsp.NewSmoother(dsp.SmootherConfig{ChannelCount: 1, InitialValue: dsp.MinDB})

	_, err := NewAnalyzer(AnalyzerConfig{FrameSize: 2, Channels: nil, Smoother: sm, State: state})
	assert.Error(t, err, "empty selection")

	_, err = NewAnalyzer(AnalyzerConfig{FrameSize: 2, Channels: []int{2}, Smoother: sm, State: state})
	assert.Error(t, err, "index beyond frame")

	_, err = NewAnalyzer(AnalyzerConfig{FrameSize: 2, Channels: []int{-1}, Smoother: sm, State: state})
	assert.Error(t, err, "negative index")

	_, err = NewAnalyzer(AnalyzerConfig{FrameSize: 2, Channels: []int{0, 1}, Smoother: sm, State: state})
	assert.Error(t, err, "state sized for one channel")
}

func TestAnalyzerTripsAndStaysTripped(t *testing.T) {
	// Threshold -10 dB is about 0.316 linear; a 0.5 peak must trip it.
	a, state := newTestAnalyzer(t, 1, []int{0}, -10)

	a.Process(interleave(64, 1, []float64{0.5}))

	snap := NewSnapshot(1)
	state.Snapshot(snap)

	require.True(t, snap.Tripped[0])
	assert.InDelta(t, -6.0, snap.CurrentDB[0], 0.05)

	// Silence afterwards: levels fall to the floor, the flag stays.
	for i := 0; i < 20; i++ {
		a.Process(interleave(64, 1, []float64{0}))
	}

	state.Snapshot(snap)
	assert.True(t, snap.Tripped[0])
	assert.Equal(t, dsp.MinDB, snap.CurrentDB[0])
}

func TestAnalyzerSubThresholdDoesNotTrip(t *testing.T) {
	a, state := newTestAnalyzer(t, 1, []int{0}, -10)

	// 0.3 linear is just under the -10 dB threshold.
	a.Process(interleave(64, 1, []float64{0.3}))

	snap := NewSnapshot(1)
	state.Snapshot(snap)

	assert.False(t, snap.Tripped[0])
}

func TestAnalyzerThresholdUsesRawPeakNotSmoothed(t *testing.T) {
	// The first loud buffer must trip immediately even though the smoothed
	// value is still far below the threshold.
	a, state := newTestAnalyzer(t, 1, []int{0}, -10)

	a.Process(interleave(64, 1, []float64{0.9}))

	snap := NewSnapshot(1)
	state.Snapshot(snap)

	require.True(t, snap.Tripped[0])
	assert.Less(t, snap.SmoothedDB[0], -10.0)
}

func TestAnalyzerSmoothingStages(t *testing.T) {
	a, state := newTestAnalyzer(t, 1, []int{0}, 0)

	a.Process(interleave(64, 1, []float64{1.0}))

	snap := NewSnapshot(1)
	state.Snapshot(snap)

	// One full-scale buffer: current jumps to 0 dB, the stages lag behind
	// in order.
	assert.InDelta(t, 0.0, snap.CurrentDB[0], 1e-9)
	assert.Less(t, snap.SmoothedDB[0], snap.CurrentDB[0])
	assert.Less(t, snap.DisplayDB[0], snap.SmoothedDB[0])
}

func TestAnalyzerChannelIsolation(t *testing.T) {
	// Three device channels, monitoring [0, 2]. Channel 0 loud, channel 2
	// silent, channel 1 (unmonitored) louder than everything.
	a, state := newTestAnalyzer(t, 3, []int{0, 2}, 0)

	a.Process(interleave(64, 3, []float64{0.5, 1.0, 0.0}))

	snap := NewSnapshot(2)
	state.Snapshot(snap)

	assert.InDelta(t, -6.0, snap.CurrentDB[0], 0.05)
	assert.Equal(t, dsp.MinDB, snap.CurrentDB[1])
	assert.NotEqual(t, snap.CurrentDB[0], snap.CurrentDB[1])
}

func TestAnalyzerEmptyBuffer(t *testing.T) {
	a, state := newTestAnalyzer(t, 2, []int{0, 1}, 0)

	a.Process(nil)

	snap := NewSnapshot(2)
	state.Snapshot(snap)

	assert.Equal(t, dsp.MinDB, snap.CurrentDB[0])
	assert.Equal(t, dsp.MinDB, snap.CurrentDB[1])
	assert.False(t, snap.Tripped[0])
}

func BenchmarkAnalyzerProcess(b *testing.B) {
	state := NewState(2)

	a, err := NewAnalyzer(AnalyzerConfig{
		FrameSize:   2,
		Channels:    []int{0, 1},
		ThresholdDB: -10,
		Smoother: dsp.NewSmoother(dsp.SmootherConfig{
			ChannelCount: 2,
			InitialValue: dsp.MinDB,
		}),
		State: state,
	})
	if err != nil {
		b.Fatal(err)
	}

	buf := interleave(1024, 2, []float64{0.25, 0.5})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		a.Process(buf)
	}
}
