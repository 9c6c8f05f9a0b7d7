package meter

import (
	"github.com/pkg/errors"

	"github.com/standby-cli/standby/dsp"
)

// AnalyzerConfig is the configuration for an Analyzer.
type AnalyzerConfig struct {
	FrameSize   int          // channels per interleaved frame
	Channels    []int        // channel indices to monitor
	ThresholdDB float64      // trip threshold in dB
	Smoother    dsp.Smoother // per-channel display smoother
	State       *State       // shared output state
}

// Analyzer turns one interleaved buffer into per-channel levels and
// publishes them. All scratch space is allocated up front; Process never
// allocates, returns nothing and must not block beyond the state lock, so it
// is safe to drive from an audio callback.
type Analyzer struct {
	frameSize       int
	channels        []int
	linearThreshold float64

	smoother dsp.Smoother
	state    *State

	peaks    []float64
	current  []float64
	smoothed []float64
	display  []float64
	over     []bool
}

// NewAnalyzer validates the channel selection against the frame size and
// builds an analyzer. The dB threshold is converted to a linear amplitude
// once, here.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if len(cfg.Channels) == 0 {
		return nil, errors.New("no channels selected")
	}

	for _, ch := range cfg.Channels {
		if ch < 0 || ch >= cfg.FrameSize {
			return nil, errors.Errorf("channel %d out of range for %d-channel frames", ch, cfg.FrameSize)
		}
	}

	if cfg.State.Channels() != len(cfg.Channels) {
		return nil, errors.New("state channel count does not match selection")
	}

	n := len(cfg.Channels)

	return &Analyzer{
		frameSize:       cfg.FrameSize,
		channels:        cfg.Channels,
		linearThreshold: dsp.DBAmplitude(cfg.ThresholdDB),
		smoother:        cfg.Smoother,
		state:           cfg.State,
		peaks:           make([]float64, n),
		current:         make([]float64, n),
		smoothed:        make([]float64, n),
		display:         make([]float64, n),
		over:            make([]bool, n),
	}, nil
}

// Process analyzes one interleaved buffer and publishes the result.
//
// The threshold compares the raw linear peak, not the smoothed dB value:
// smoothing exists for the drawn bar only and must never change what counts
// as "exceeded".
func (a *Analyzer) Process(buf []float64) {
	dsp.ChannelPeaks(buf, a.frameSize, a.channels, a.peaks)

	for i, peak := range a.peaks {
		a.current[i] = dsp.AmplitudeDB(peak)
		a.smoothed[i], a.display[i] = a.smoother.Smooth(i, a.current[i])
		a.over[i] = peak > a.linearThreshold
	}

	a.state.Publish(a.current, a.smoothed, a.display, a.over)
}
