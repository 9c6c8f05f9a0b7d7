// Package monitor implements the polling side of the meter: a fixed-tick
// loop that snapshots the shared state, drives the renderer and runs one of
// the monitoring modes until it terminates.
package monitor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/standby-cli/standby/dsp"
	"github.com/standby-cli/standby/meter"
)

// DefaultInterval is the poll tick period.
const DefaultInterval = 10 * time.Millisecond

// Mode selects the monitoring behavior of a session.
type Mode int

const (
	// Detect waits until any monitored channel trips the threshold.
	Detect Mode = iota
	// Max tracks the running per-channel maximum level.
	Max
	// Average tracks the running per-channel average level.
	Average
)

func (m Mode) String() string {
	switch m {
	case Detect:
		return "detect"
	case Max:
		return "max"
	case Average:
		return "average"
	default:
		return "unknown"
	}
}

// Outcome is how a session ended. An error is not an outcome; it travels on
// its own return value.
type Outcome int

const (
	// Success means the mode ran to its terminal condition: the threshold
	// tripped in Detect, or the report was finished in Max/Average.
	Success Outcome = iota
	// UserExit means a cancel source fired before the terminal condition.
	UserExit
)

// Report is the result of a finished session.
type Report struct {
	Outcome Outcome
	Mode    Mode

	// Levels holds the final per-channel vector for Max and Average. Nil in
	// Detect mode.
	Levels []float64

	// Tripped holds the monitored-set positions that tripped the threshold.
	// Only set in Detect mode.
	Tripped []int

	// Ticks is the number of poll ticks that contributed to the report.
	Ticks int
}

// Renderer draws one snapshot. The monitor renders every tick before it
// evaluates termination, so the last observed state is always shown.
type Renderer interface {
	Draw(snap *meter.Snapshot, status string) error
}

// Config is the configuration for a Session.
type Config struct {
	Mode     Mode
	State    *meter.State
	Renderer Renderer

	// Confirm finishes a Max or Average session early. Detect ignores it.
	Confirm <-chan struct{}

	// Duration bounds a Max or Average session. Zero means unbounded.
	// Detect has no timeout.
	Duration time.Duration

	// Interval overrides the tick period. DefaultInterval if zero.
	Interval time.Duration

	// Status is the status line shown while the session runs.
	Status string
}

// Session runs one monitoring mode over the shared state.
type Session struct {
	cfg Config

	snap  *meter.Snapshot
	maxs  []float64
	sums  []float64
	ticks int
}

// New creates a session. Accumulators start at the dB floor (Max) and zero
// (Average), which are also the reported values for a session that never
// ticks.
func New(cfg Config) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	n := cfg.State.Channels()

	s := &Session{
		cfg:  cfg,
		snap: meter.NewSnapshot(n),
		maxs: make([]float64, n),
		sums: make([]float64, n),
	}

	for ch := range s.maxs {
		s.maxs[ch] = dsp.MinDB
	}

	return s
}

// Run polls until the mode terminates or ctx is canceled. It returns a
// report on every outcome; the error is non-nil only for real failures
// (a renderer failure aborts the session).
func (s *Session) Run(ctx context.Context) (Report, error) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.cfg.Duration > 0 && s.cfg.Mode != Detect {
		timer := time.NewTimer(s.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		// Cancellation is immediate; a session canceled before its first
		// tick reports the accumulators' initial values.
		select {
		case <-ctx.Done():
			return s.report(UserExit), nil
		default:
		}

		s.cfg.State.Snapshot(s.snap)

		if err := s.cfg.Renderer.Draw(s.snap, s.cfg.Status); err != nil {
			return s.report(UserExit), errors.Wrap(err, "failed to draw meter")
		}

		switch s.cfg.Mode {
		case Detect:
			if tripped := s.snap.TrippedChannels(); len(tripped) > 0 {
				rep := s.report(Success)
				rep.Tripped = tripped
				return rep, nil
			}

		case Max:
			for ch, db := range s.snap.CurrentDB {
				if db > s.maxs[ch] {
					s.maxs[ch] = db
				}
			}
			s.ticks++

		case Average:
			floats.Add(s.sums, s.snap.CurrentDB)
			s.ticks++
		}

		select {
		case <-ctx.Done():
			return s.report(UserExit), nil

		case <-s.confirm():
			return s.report(Success), nil

		case <-deadline:
			return s.report(Success), nil

		case <-ticker.C:
		}
	}
}

// confirm returns the confirm channel for modes that honor it and a nil
// (never ready) channel for Detect.
func (s *Session) confirm() <-chan struct{} {
	if s.cfg.Mode == Detect {
		return nil
	}
	return s.cfg.Confirm
}

func (s *Session) report(outcome Outcome) Report {
	rep := Report{
		Outcome: outcome,
		Mode:    s.cfg.Mode,
		Ticks:   s.ticks,
	}

	switch s.cfg.Mode {
	case Max:
		rep.Levels = make([]float64, len(s.maxs))
		copy(rep.Levels, s.maxs)

	case Average:
		rep.Levels = make([]float64, len(s.sums))
		if s.ticks > 0 {
			copy(rep.Levels, s.sums)
			floats.Scale(1/float64(s.ticks), rep.Levels)
		}
		// A zero-tick session reports 0.0 per channel rather than dividing
		// by zero.
	}

	return rep
}
