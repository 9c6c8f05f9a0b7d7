package input

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice string

func (d fakeDevice) String() string { return string(d) }

type fakeBackend struct {
	inits   int
	devices []Device
}

func (b *fakeBackend) Init() error {
	b.inits++
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) Devices() ([]Device, error) {
	return b.devices, nil
}

func (b *fakeBackend) DefaultDevice() (Device, error) {
	return b.devices[0], nil
}

func (b *fakeBackend) Start(SessionConfig) (Session, error) {
	return fakeSession{}, nil
}

type fakeSession struct{}

func (fakeSession) Start(ctx context.Context, dst Buffer, kickChan chan bool, mu *sync.Mutex) error {
	<-ctx.Done()
	return ctx.Err()
}

// withRegistry swaps the global backend list for the test's own.
func withRegistry(t *testing.T, backends ...NamedBackend) {
	t.Helper()

	saved := Backends
	Backends = backends
	t.Cleanup(func() { Backends = saved })
}

func TestFindBackend(t *testing.T) {
	fake := &fakeBackend{}
	withRegistry(t, NamedBackend{Name: "fake", Backend: fake})

	assert.NotNil(t, FindBackend("fake"))
	assert.Nil(t, FindBackend("missing"))
	assert.True(t, HasBackend("fake"))
	assert.False(t, HasBackend("missing"))
	assert.Equal(t, []string{"fake"}, GetAllBackendNames())
}

func TestInitBackend(t *testing.T) {
	fake := &fakeBackend{}
	withRegistry(t, NamedBackend{Name: "fake", Backend: fake})

	b, err := InitBackend("fake")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, fake.inits)

	_, err = InitBackend("missing")
	assert.Error(t, err)
}

func TestGetDevice(t *testing.T) {
	fake := &fakeBackend{
		devices: []Device{fakeDevice("default"), fakeDevice("usb mic")},
	}

	dev, err := GetDevice(fake, "")
	require.NoError(t, err)
	assert.Equal(t, "default", dev.String())

	dev, err = GetDevice(fake, "usb mic")
	require.NoError(t, err)
	assert.Equal(t, "usb mic", dev.String())

	_, err = GetDevice(fake, "nope")
	assert.Error(t, err)
}

func TestMakeBuffer(t *testing.T) {
	cfg := SessionConfig{FrameSize: 2, SampleSize: 512}

	buf := MakeBuffer(cfg)
	assert.Len(t, buf, 1024)
	assert.True(t, EnsureBufferLen(cfg, buf))
	assert.False(t, EnsureBufferLen(cfg, buf[:100]))
}
