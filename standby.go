// Package standby wires an input backend, the level analyzer and the
// terminal meter into one monitoring session.
package standby

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/standby-cli/standby/dsp"
	"github.com/standby-cli/standby/graphic"
	"github.com/standby-cli/standby/input"
	"github.com/standby-cli/standby/meter"
	"github.com/standby-cli/standby/monitor"
)

// Config is the configuration for a monitoring session.
type Config struct {
	// Backend is the backend name from list-backends. Empty picks the
	// platform default.
	Backend string
	// Device is the device name from list-devices. Empty picks the backend's
	// default device.
	Device string
	// SampleRate is the rate at which samples are read.
	SampleRate float64
	// SampleSize is the number of frames per buffer.
	SampleSize int
	// Channels are the device channel indices to monitor.
	Channels []int
	// ThresholdDB is the trip threshold in dB, in [-60, 0].
	ThresholdDB int
	// MinDisplayDB is the lower bound of the drawn meter range.
	MinDisplayDB int
	// Mode is the monitoring mode to run.
	Mode monitor.Mode
	// Duration bounds Max and Average sessions. Zero means unbounded.
	Duration time.Duration
}

// Validate checks the configuration before any device is touched.
func (cfg *Config) Validate() error {
	if cfg.ThresholdDB > 0 || cfg.ThresholdDB < -60 {
		return errors.Errorf("threshold must be between -60 and 0 dB, got %d", cfg.ThresholdDB)
	}

	if cfg.MinDisplayDB >= cfg.ThresholdDB || cfg.MinDisplayDB < -100 {
		return errors.Errorf("min dB must be between -100 and the threshold, got %d", cfg.MinDisplayDB)
	}

	if len(cfg.Channels) == 0 {
		return errors.New("no channels selected")
	}

	seen := make(map[int]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		if ch < 0 {
			return errors.Errorf("channel index must not be negative, got %d", ch)
		}
		if seen[ch] {
			return errors.Errorf("channel %d selected twice", ch)
		}
		seen[ch] = true
	}

	if cfg.SampleSize < 4 {
		return errors.New("sample size too small (4+ required)")
	}

	if cfg.SampleRate < float64(cfg.SampleSize) {
		return errors.New("sample rate lower than sample size")
	}

	if cfg.Duration < 0 {
		return errors.New("duration must be positive")
	}

	return nil
}

// frameSize is the number of interleaved channels the capture has to
// deliver so that every selected channel exists in the frame.
func (cfg *Config) frameSize() int {
	max := 0
	for _, ch := range cfg.Channels {
		if ch > max {
			max = ch
		}
	}
	return max + 1
}

// checkDeviceChannels rejects selected channel indices the device cannot
// provide, before any stream is opened. Only devices that report a native
// channel count are checked; exec pipes convert to whatever channel count
// they are asked for.
func checkDeviceChannels(dev input.Device, channels []int) error {
	counter, ok := dev.(input.ChannelCounter)
	if !ok {
		return nil
	}

	total := counter.ChannelCount()
	if total <= 0 {
		return nil
	}

	for _, ch := range channels {
		if ch >= total {
			return errors.Errorf("channel %d out of range: device %q has %d channels", ch, dev, total)
		}
	}

	return nil
}

func (cfg *Config) status(deviceName string) string {
	switch cfg.Mode {
	case monitor.Max:
		return "Measuring max level on " + deviceName + "... Press Enter to finish, Ctrl+C or Escape to quit."
	case monitor.Average:
		return "Measuring average level on " + deviceName + "... Press Enter to finish, Ctrl+C or Escape to quit."
	default:
		return "Monitoring " + deviceName + "... Press Ctrl+C or Escape to quit."
	}
}

// Run runs one monitoring session to completion. The report is valid
// whenever the error is nil.
func Run(ctx context.Context, cfg *Config) (monitor.Report, error) {
	if err := cfg.Validate(); err != nil {
		return monitor.Report{}, err
	}

	// INPUT SETUP

	backendName := cfg.Backend
	if backendName == "" {
		backendName = input.DefaultBackend()
	}

	backend, err := input.InitBackend(backendName)
	if err != nil {
		return monitor.Report{}, err
	}
	defer backend.Close()

	sessConfig := input.SessionConfig{
		FrameSize:  cfg.frameSize(),
		SampleSize: cfg.SampleSize,
		SampleRate: cfg.SampleRate,
	}

	if sessConfig.Device, err = input.GetDevice(backend, cfg.Device); err != nil {
		return monitor.Report{}, err
	}

	if err := checkDeviceChannels(sessConfig.Device, cfg.Channels); err != nil {
		return monitor.Report{}, err
	}

	audio, err := backend.Start(sessConfig)
	if err != nil {
		return monitor.Report{}, errors.Wrap(err, "failed to start the input backend")
	}

	// ANALYZER SETUP

	state := meter.NewState(len(cfg.Channels))

	analyzer, err := meter.NewAnalyzer(meter.AnalyzerConfig{
		FrameSize:   sessConfig.FrameSize,
		Channels:    cfg.Channels,
		ThresholdDB: float64(cfg.ThresholdDB),
		Smoother: dsp.NewSmoother(dsp.SmootherConfig{
			ChannelCount: len(cfg.Channels),
			InitialValue: dsp.MinDB,
		}),
		State: state,
	})
	if err != nil {
		return monitor.Report{}, err
	}

	// DISPLAY SETUP

	display := graphic.NewDisplay(graphic.Config{
		DeviceName:  sessConfig.Device.String(),
		ThresholdDB: cfg.ThresholdDB,
		MinDB:       cfg.MinDisplayDB,
		Channels:    cfg.Channels,
	})

	if err := display.Init(); err != nil {
		return monitor.Report{}, err
	}
	defer display.Close()

	// Root context: canceled by us on teardown, by the display on quit keys.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx = display.Start(ctx)

	// PIPELINE

	buffer := input.MakeBuffer(sessConfig)
	scratch := input.MakeBuffer(sessConfig)
	kickChan := make(chan bool, 1)
	mu := &sync.Mutex{}

	// The analyzer pump copies the freshest buffer out of the input lock and
	// analyzes it, once per kick.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-kickChan:
			}

			mu.Lock()
			input.CopyBuffer(scratch, buffer)
			mu.Unlock()

			analyzer.Process(scratch)
		}
	}()

	audioErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		err := audio.Start(ctx, buffer, kickChan, mu)
		audioErr <- err

		// A dead stream ends the session; the monitor would otherwise keep
		// polling silence.
		if err != nil && !errors.Is(err, context.Canceled) {
			cancel()
		}
	}()

	// MONITOR

	session := monitor.New(monitor.Config{
		Mode:     cfg.Mode,
		State:    state,
		Renderer: display,
		Confirm:  display.Confirmed(),
		Duration: cfg.Duration,
		Status:   cfg.status(sessConfig.Device.String()),
	})

	report, runErr := session.Run(ctx)

	// Stop the stream before anything that the callback references goes
	// away, then let the deferred calls restore the terminal.
	cancel()
	wg.Wait()

	if err := <-audioErr; err != nil && !errors.Is(err, context.Canceled) {
		return report, errors.Wrap(err, "input session failed")
	}

	return report, runErr
}
