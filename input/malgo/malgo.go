// Package malgo implements a native input backend on top of miniaudio.
package malgo

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math"
	"runtime"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"

	"github.com/standby-cli/standby/input"
)

var GlobalBackend = &Backend{}

func init() {
	input.RegisterBackend("malgo", GlobalBackend)
}

// Backend represents the miniaudio backend. A zero-value instance is a valid
// instance.
type Backend struct {
	ctx *malgo.AllocatedContext
}

func (b *Backend) Init() error {
	if b.ctx != nil {
		return nil
	}

	// Let miniaudio pick the native backend for the platform.
	var backends []malgo.Backend
	switch runtime.GOOS {
	case "linux":
		backends = []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		backends = []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		backends = []malgo.Backend{malgo.BackendCoreaudio}
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.Wrap(err, "failed to initialize miniaudio context")
	}

	b.ctx = ctx
	return nil
}

func (b *Backend) Close() error {
	if b.ctx == nil {
		return nil
	}

	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil

	return err
}

func (b *Backend) Devices() ([]input.Device, error) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get capture devices")
	}

	devices := make([]input.Device, len(infos))
	for i, info := range infos {
		devices[i] = b.newDevice(info)
	}

	return devices, nil
}

func (b *Backend) DefaultDevice() (input.Device, error) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get capture devices")
	}

	for _, info := range infos {
		if info.IsDefault != 0 {
			return b.newDevice(info), nil
		}
	}

	if len(infos) > 0 {
		return b.newDevice(infos[0]), nil
	}

	return nil, errors.New("no capture devices found")
}

func (b *Backend) Start(cfg input.SessionConfig) (input.Session, error) {
	dv, ok := cfg.Device.(Device)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	return &Session{backend: b, device: dv, cfg: cfg}, nil
}

// Device represents a miniaudio capture device.
type Device struct {
	Name string

	id       malgo.DeviceID
	channels int
}

func (b *Backend) newDevice(info malgo.DeviceInfo) Device {
	d := Device{
		Name: info.Name(),
		id:   info.ID,
	}

	// Enumeration alone rarely carries the native data formats; the full
	// record has the channel bound.
	if full, err := b.ctx.DeviceInfo(malgo.Capture, info.ID, malgo.Shared); err == nil {
		info = full
	}

	count := int(info.FormatCount)
	if count > len(info.Formats) {
		count = len(info.Formats)
	}

	for _, f := range info.Formats[:count] {
		if n := int(f.Channels); n > d.channels {
			d.channels = n
		}
	}

	return d
}

// ChannelCount reports the device's maximum native capture channel count, or
// 0 when the backend did not expose one.
func (d Device) ChannelCount() int {
	return d.channels
}

// String returns the device name.
func (d Device) String() string {
	return d.Name
}

// DecodedID returns the device ID as an ASCII string where possible. On ALSA
// this is the hw identifier.
func (d Device) DecodedID() string {
	raw, err := hex.DecodeString(d.id.String())
	if err != nil {
		return d.id.String()
	}
	return string(raw)
}

// Session is an input source that pulls from a miniaudio capture device.
type Session struct {
	backend *Backend
	device  Device
	cfg     input.SessionConfig
}

// Start opens the capture device and streams interleaved f32 frames into dst
// until ctx is canceled. The data callback runs on miniaudio's audio thread;
// it only ever takes mu for the duration of one buffer copy and never blocks
// on the consumer.
func (s *Session) Start(ctx context.Context, dst input.Buffer, kickChan chan bool, mu *sync.Mutex) error {
	if !input.EnsureBufferLen(s.cfg, dst) {
		return errors.New("invalid dst length given")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(s.cfg.FrameSize)
	deviceConfig.Capture.DeviceID = s.device.id.Pointer()
	deviceConfig.SampleRate = uint32(s.cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(s.cfg.SampleSize)
	deviceConfig.Alsa.NoMMap = 1

	// The device's period size does not have to match SampleSize, so frames
	// are written rolling and a kick is sent on every wrap.
	var write int

	onRecvFrames := func(_, in []byte, frameCount uint32) {
		samples := int(frameCount) * s.cfg.FrameSize
		if samples*4 > len(in) {
			samples = len(in) / 4
		}

		mu.Lock()
		for i := 0; i < samples; i++ {
			bits := binary.LittleEndian.Uint32(in[i*4:])
			dst[write] = float64(math.Float32frombits(bits))

			if write++; write == len(dst) {
				write = 0

				// Drop the kick instead of waiting; levels are continuous
				// and the consumer only cares about the freshest buffer.
				select {
				case kickChan <- true:
				default:
				}
			}
		}
		mu.Unlock()
	}

	device, err := malgo.InitDevice(s.backend.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize capture device")
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return errors.Wrap(err, "failed to start capture device")
	}

	<-ctx.Done()

	// Uninit stops the device first, so no callback can touch dst after this
	// returns.
	device.Uninit()

	return ctx.Err()
}
