package standby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/standby-cli/standby/monitor"
)

func validConfig() Config {
	return Config{
		SampleRate:   44100,
		SampleSize:   1024,
		Channels:     []int{0},
		ThresholdDB:  0,
		MinDisplayDB: -60,
		Mode:         monitor.Detect,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.ThresholdDB = 1
	assert.Error(t, cfg.Validate(), "threshold above 0 dB")

	cfg = validConfig()
	cfg.ThresholdDB = -61
	assert.Error(t, cfg.Validate(), "threshold below the floor")

	cfg = validConfig()
	cfg.ThresholdDB = -10
	cfg.MinDisplayDB = -10
	assert.Error(t, cfg.Validate(), "min dB must sit below the threshold")

	cfg = validConfig()
	cfg.MinDisplayDB = -101
	assert.Error(t, cfg.Validate(), "min dB below -100")

	cfg = validConfig()
	cfg.Channels = nil
	assert.Error(t, cfg.Validate(), "no channels")

	cfg = validConfig()
	cfg.Channels = []int{0, -1}
	assert.Error(t, cfg.Validate(), "negative channel")

	cfg = validConfig()
	cfg.Channels = []int{1, 1}
	assert.Error(t, cfg.Validate(), "duplicate channel")

	cfg = validConfig()
	cfg.SampleSize = 2
	assert.Error(t, cfg.Validate(), "sample size too small")

	cfg = validConfig()
	cfg.SampleRate = 512
	assert.Error(t, cfg.Validate(), "rate below buffer size")

	cfg = validConfig()
	cfg.Duration = -time.Second
	assert.Error(t, cfg.Validate(), "negative duration")

	cfg = validConfig()
	cfg.ThresholdDB = -10
	cfg.MinDisplayDB = -80
	cfg.Channels = []int{0, 3}
	cfg.Duration = 5 * time.Second
	assert.NoError(t, cfg.Validate())
}

type countedDevice struct {
	name     string
	channels int
}

func (d countedDevice) String() string    { return d.name }
func (d countedDevice) ChannelCount() int { return d.channels }

type plainDevice string

func (d plainDevice) String() string { return string(d) }

func TestCheckDeviceChannels(t *testing.T) {
	mono := countedDevice{name: "mono mic", channels: 1}

	assert.NoError(t, checkDeviceChannels(mono, []int{0}))
	assert.Error(t, checkDeviceChannels(mono, []int{5}),
		"index beyond the device's channel count")
	assert.Error(t, checkDeviceChannels(countedDevice{name: "stereo", channels: 2}, []int{0, 2}))

	// Devices that cannot report a bound are not checked.
	assert.NoError(t, checkDeviceChannels(plainDevice("pipe"), []int{5}))
	assert.NoError(t, checkDeviceChannels(countedDevice{name: "opaque"}, []int{5}))
}

func TestConfigFrameSize(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 1, cfg.frameSize())

	cfg.Channels = []int{0, 1}
	assert.Equal(t, 2, cfg.frameSize())

	// A sparse selection still needs the full frame up to the highest index.
	cfg.Channels = []int{5}
	assert.Equal(t, 6, cfg.frameSize())

	cfg.Channels = []int{3, 0}
	assert.Equal(t, 4, cfg.frameSize())
}
