package device

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var errNACK = stderrors.New("i2c: no acknowledge")

// fakeDisplayBus answers like a monitor with an EDID EEPROM and a DDC/CI
// controller.
type fakeDisplayBus struct {
	edid        []byte
	current     uint16
	maximum     uint16
	power       uint16
	unsupported map[byte]bool
	corrupt     bool
	failDDC     bool
	pending     []byte
	writes      [][]byte
	opens       int
	closes      int
}

func (*fakeDisplayBus) String() string                 { return "fake-i2c" }
func (*fakeDisplayBus) SetSpeed(physic.Frequency) error { return nil }

func (b *fakeDisplayBus) Close() error {
	b.closes++
	return nil
}

func (b *fakeDisplayBus) Tx(addr uint16, w, r []byte) error {
	switch addr {
	case edidAddr:
		if b.edid == nil {
			return errNACK
		}
		copy(r, b.edid)
		return nil
	case ddcAddr:
		if b.failDDC {
			return errNACK
		}
		if len(w) > 0 {
			b.writes = append(b.writes, append([]byte(nil), w...))
			b.handle(w)
		}
		if len(r) > 0 {
			copy(r, b.pending)
		}
		return nil
	default:
		return errNACK
	}
}

func (b *fakeDisplayBus) handle(w []byte) {
	switch w[2] {
	case getVCPOpcode:
		code := w[3]
		var rc byte
		if b.unsupported[code] {
			rc = 1
		}
		value := b.current
		if code == VCPPowerMode {
			value = b.power
		}
		reply := []byte{0x6E, 0x88, 0x02, rc, code, 0x00, byte(b.maximum >> 8), byte(b.maximum), byte(value >> 8), byte(value)}
		sum := byte(0x50)
		for _, v := range reply {
			sum ^= v
		}
		if b.corrupt {
			sum ^= 0xFF
		}
		b.pending = append(reply, sum)
	case setVCPOpcode:
		value := uint16(w[4])<<8 | uint16(w[5])
		if w[3] == VCPPowerMode {
			b.power = value
		} else {
			b.current = value
		}
	}
}

func (b *fakeDisplayBus) opener() BusOpener {
	return func() (i2c.BusCloser, error) {
		b.opens++
		return b, nil
	}
}

func buildEDID(name string) []byte {
	edid := make([]byte, edidLength)
	copy(edid, edidHeader)

	desc := edid[edidDescriptorOffset+edidDescriptorLength : edidDescriptorOffset+2*edidDescriptorLength]
	desc[3] = edidTagMonitorName
	text := []byte(name + "\n")
	for len(text) < 13 {
		text = append(text, ' ')
	}
	copy(desc[5:], text)

	return edid
}

func newTestChannel(bus *fakeDisplayBus) *I2CChannel {
	channel := NewI2CChannel("i2c-4", bus.opener())
	channel.sleep = func(time.Duration) {}

	return channel
}

func TestFrame(t *testing.T) {
	assert.Equal(t, []byte{0x51, 0x82, 0x01, 0x10, 0xAC}, frame(getVCPOpcode, VCPBrightness))
	assert.Equal(t, []byte{0x51, 0x84, 0x03, 0x10, 0x00, 0x32, 0x9A}, frame(setVCPOpcode, VCPBrightness, 0x00, 0x32))
}

func TestI2CChannelGetVCP(t *testing.T) {
	bus := &fakeDisplayBus{current: 50, maximum: 100}
	channel := newTestChannel(bus)

	current, maximum, err := channel.GetVCP(VCPBrightness)
	require.NoError(t, err)
	assert.Equal(t, uint16(50), current)
	assert.Equal(t, uint16(100), maximum)

	require.Len(t, bus.writes, 1)
	assert.Equal(t, []byte{0x51, 0x82, 0x01, 0x10, 0xAC}, bus.writes[0])
	assert.Equal(t, bus.opens, bus.closes, "The bus is closed after every transaction")
}

func TestI2CChannelSetVCP(t *testing.T) {
	bus := &fakeDisplayBus{current: 10, maximum: 100}
	channel := newTestChannel(bus)

	require.NoError(t, channel.SetVCP(VCPBrightness, 0x32))
	assert.Equal(t, uint16(0x32), bus.current)
	assert.Equal(t, []byte{0x51, 0x84, 0x03, 0x10, 0x00, 0x32, 0x9A}, bus.writes[0])
}

func TestI2CChannelErrors(t *testing.T) {
	bus := &fakeDisplayBus{current: 10, maximum: 100, corrupt: true}
	_, _, err := newTestChannel(bus).GetVCP(VCPBrightness)
	assert.True(t, errors.HasCode(err, ErrBadChecksum))

	bus = &fakeDisplayBus{maximum: 100, unsupported: map[byte]bool{VCPPowerMode: true}}
	_, _, err = newTestChannel(bus).GetVCP(VCPPowerMode)
	assert.True(t, errors.HasCode(err, ErrUnsupportedVCP))

	bus = &fakeDisplayBus{failDDC: true}
	err = newTestChannel(bus).SetVCP(VCPBrightness, 1)
	assert.True(t, errors.HasCode(err, ErrDevice))

	channel := NewI2CChannel("i2c-9", func() (i2c.BusCloser, error) { return nil, errNACK })
	_, _, err = channel.GetVCP(VCPBrightness)
	assert.True(t, errors.HasCode(err, ErrBusOpenFailed))
}

func TestMonitorName(t *testing.T) {
	assert.Equal(t, "DELL U2720Q", monitorName(buildEDID("DELL U2720Q")))

	edid := make([]byte, edidLength)
	copy(edid, edidHeader)
	assert.Equal(t, "Unknown", monitorName(edid))
}

func TestDDCBackendDiscover(t *testing.T) {
	monitor := &fakeDisplayBus{edid: buildEDID("LG HDR 4K"), current: 70, maximum: 100}
	smbus := &fakeDisplayBus{}
	mute := &fakeDisplayBus{edid: buildEDID("Projector"), failDDC: true}

	backend := NewDDCBackendWithBuses(func() ([]BusRef, error) {
		return []BusRef{
			{Name: "i2c-0", Open: smbus.opener()},
			{Name: "i2c-4", Open: monitor.opener()},
			{Name: "i2c-5", Open: mute.opener()},
		}, nil
	})
	backend.newChannel = func(bus string, open BusOpener) VCPChannel {
		channel := NewI2CChannel(bus, open)
		channel.sleep = func(time.Duration) {}
		return channel
	}

	devices, errs := backend.Discover(context.Background())
	require.Len(t, devices, 1)
	assert.Equal(t, "LG HDR 4K", devices[0].Name())
	assert.Equal(t, uint8(70), devices[0].Brightness())
	require.Len(t, errs, 1, "A display that does not answer DDC/CI is reported")
	assert.True(t, errors.HasCode(errs[0], ErrDiscoveryFailed))
}

func TestDDCBackendListFailure(t *testing.T) {
	backend := NewDDCBackendWithBuses(func() ([]BusRef, error) {
		return nil, stderrors.New("no i2c driver")
	})

	devices, errs := backend.Discover(context.Background())
	assert.Empty(t, devices)
	require.Len(t, errs, 1)
}

func TestGlobBusesSeesLateBuses(t *testing.T) {
	dir := t.TempDir()
	buses := map[int]*fakeDisplayBus{
		2:  {edid: buildEDID("DELL P2419H"), current: 40, maximum: 100},
		11: {edid: buildEDID("LG HDR 4K"), current: 80, maximum: 100},
	}
	open := func(number int) (i2c.BusCloser, error) {
		bus, ok := buses[number]
		if !ok {
			return nil, errNACK
		}
		return bus.opener()()
	}

	backend := NewDDCBackendWithBuses(GlobBuses(filepath.Join(dir, "i2c-*"), open))
	backend.newChannel = func(bus string, open BusOpener) VCPChannel {
		channel := NewI2CChannel(bus, open)
		channel.sleep = func(time.Duration) {}
		return channel
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "i2c-2"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "i2c-bogus"), nil, 0o600))

	devices, errs := backend.Discover(context.Background())
	assert.Empty(t, errs)
	require.Len(t, devices, 1)
	assert.Equal(t, "DELL P2419H", devices[0].Name())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "i2c-11"), nil, 0o600))

	devices, errs = backend.Discover(context.Background())
	assert.Empty(t, errs)
	require.Len(t, devices, 2, "A bus created after the first discovery is found")
	assert.Equal(t, "DELL P2419H", devices[0].Name())
	assert.Equal(t, "LG HDR 4K", devices[1].Name())
}

func TestGlobBusesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"i2c-10", "i2c-9", "i2c-1"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	refs, err := GlobBuses(filepath.Join(dir, "i2c-*"), func(int) (i2c.BusCloser, error) {
		return nil, errNACK
	})()
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, filepath.Join(dir, "i2c-1"), refs[0].Name)
	assert.Equal(t, filepath.Join(dir, "i2c-9"), refs[1].Name)
	assert.Equal(t, filepath.Join(dir, "i2c-10"), refs[2].Name)
}
