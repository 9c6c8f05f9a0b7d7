package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/standby-cli/standby"
	"github.com/standby-cli/standby/monitor"
)

// config wraps the session config with the raw CLI values that still need
// parsing.
type config struct {
	standby.Config

	// channelList is the comma-separated channel indices from the CLI.
	channelList string
	// durationSec is the session bound in seconds, 0 for unbounded.
	durationSec float64
}

// newZeroConfig returns the default config: default device, channel 0,
// trip at full scale.
func newZeroConfig() config {
	return config{
		Config: standby.Config{
			SampleRate:   44100,
			SampleSize:   1024,
			ThresholdDB:  0,
			MinDisplayDB: -60,
			Mode:         monitor.Detect,
		},
		channelList: "0",
	}
}

// Sanitize parses the raw values and validates the whole config.
func (cfg *config) Sanitize() error {
	cfg.Channels = cfg.Channels[:0]

	for _, part := range strings.Split(cfg.channelList, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		ch, err := strconv.Atoi(part)
		if err != nil {
			return errors.Wrapf(err, "bad channel index %q", part)
		}

		cfg.Channels = append(cfg.Channels, ch)
	}

	if cfg.durationSec < 0 {
		return errors.New("duration must be positive")
	}
	cfg.Duration = time.Duration(cfg.durationSec * float64(time.Second))

	return cfg.Validate()
}
