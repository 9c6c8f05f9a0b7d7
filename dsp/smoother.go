package dsp

// Smoothing factors for the two stages. The first stage tracks the signal
// closely, the second exists purely to keep the drawn bar stable.
const (
	AudioSmoothingFactor   = 0.4
	DisplaySmoothingFactor = 0.15
)

type SmootherConfig struct {
	ChannelCount  int     // number of channels
	InitialValue  float64 // starting value for both stages
	AudioFactor   float64 // first stage factor, AudioSmoothingFactor if 0
	DisplayFactor float64 // second stage factor, DisplaySmoothingFactor if 0
}

type Smoother interface {
	// Smooth feeds one raw value for the given channel through both stages
	// and returns the new stage values.
	Smooth(ch int, raw float64) (smoothed, display float64)
}

type smoother struct {
	smoothed []float64
	display  []float64

	audioFactor   float64
	displayFactor float64
}

func NewSmoother(cfg SmootherConfig) Smoother {
	sm := &smoother{
		smoothed:      make([]float64, cfg.ChannelCount),
		display:       make([]float64, cfg.ChannelCount),
		audioFactor:   cfg.AudioFactor,
		displayFactor: cfg.DisplayFactor,
	}

	if sm.audioFactor == 0 {
		sm.audioFactor = AudioSmoothingFactor
	}
	if sm.displayFactor == 0 {
		sm.displayFactor = DisplaySmoothingFactor
	}

	for ch := range sm.smoothed {
		sm.smoothed[ch] = cfg.InitialValue
		sm.display[ch] = cfg.InitialValue
	}

	return sm
}

func (sm *smoother) Smooth(ch int, raw float64) (float64, float64) {
	sm.smoothed[ch] = sm.smoothed[ch]*(1-sm.audioFactor) + raw*sm.audioFactor
	sm.display[ch] = sm.display[ch]*(1-sm.displayFactor) + sm.smoothed[ch]*sm.displayFactor

	return sm.smoothed[ch], sm.display[ch]
}
