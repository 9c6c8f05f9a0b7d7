// Package dsp provides the level math for the meter: per-channel peak
// extraction from interleaved frames, amplitude/decibel conversion and the
// display smoother.
package dsp

import "math"

// MinDB is the floor level representing silence or anything below the
// measurable range.
const MinDB = -60.0

// AmplitudeDB converts a linear amplitude to decibels relative to full
// scale. Zero and negative amplitudes map to MinDB.
func AmplitudeDB(amplitude float64) float64 {
	if amplitude > 0 {
		return 20 * math.Log10(amplitude)
	}
	return MinDB
}

// DBAmplitude converts decibels back to a linear amplitude. It is the exact
// inverse of AmplitudeDB for positive amplitudes.
func DBAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// ChannelPeaks writes the peak absolute amplitude of each selected channel
// into dst. buf holds interleaved frames of frameSize channels; channel c's
// samples sit at every frameSize-th index starting at c. An empty buffer
// yields a peak of 0 for every channel.
func ChannelPeaks(buf []float64, frameSize int, channels []int, dst []float64) {
	for i, ch := range channels {
		peak := 0.0

		for idx := ch; idx < len(buf); idx += frameSize {
			if v := math.Abs(buf[idx]); v > peak {
				peak = v
			}
		}

		dst[i] = peak
	}
}
