package device

import (
	"sync"

	"codeberg.org/mutker/backlightd/internal/errors"
)

// MCCS feature codes and values used by the DDC backend.
const (
	VCPBrightness byte = 0x10
	VCPPowerMode  byte = 0xD6

	powerModeOn  uint16 = 0x01
	powerModeOff uint16 = 0x04
)

// DDCDevice drives an external monitor through its VCP features.
type DDCDevice struct {
	name    string
	channel VCPChannel
	mu      sync.Mutex
	maximum uint64
	raw     uint64
	percent uint8
}

// NewDDCDevice reads the current brightness feature of the display behind
// channel.
func NewDDCDevice(name string, channel VCPChannel) (*DDCDevice, error) {
	errFactory := errors.New()

	current, maximum, err := channel.GetVCP(VCPBrightness)
	if err != nil {
		return nil, errFactory.Wrap(ErrDevice, err).WithMessage(name + ": read brightness")
	}
	if maximum == 0 {
		return nil, errFactory.WithData(ErrZeroMaximum, name)
	}

	return &DDCDevice{
		name:    name,
		channel: channel,
		maximum: uint64(maximum),
		raw:     uint64(current),
		percent: rawToPercent(uint64(current), uint64(maximum)),
	}, nil
}

func (d *DDCDevice) Name() string { return d.name }

func (*DDCDevice) Kind() Kind { return KindDDC }

func (d *DDCDevice) Brightness() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.percent
}

func (d *DDCDevice) SetBrightness(percent uint8) error {
	if err := checkPercent(percent); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	raw := percentToRaw(percent, d.maximum)
	if err := d.channel.SetVCP(VCPBrightness, uint16(raw)); err != nil {
		return errors.New().Wrap(ErrDevice, err).WithMessage(d.name + ": write brightness")
	}

	d.raw = raw
	d.percent = percent

	return nil
}

func (d *DDCDevice) TurnOff() error {
	return d.setPower(powerModeOff)
}

func (d *DDCDevice) TurnOn() error {
	return d.setPower(powerModeOn)
}

func (d *DDCDevice) setPower(mode uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.channel.SetVCP(VCPPowerMode, mode); err != nil {
		if errors.HasCode(err, ErrUnsupportedVCP) {
			return errors.New().Wrap(ErrNotSupported, err)
		}
		return errors.New().Wrap(ErrDevice, err).WithMessage(d.name + ": set power mode")
	}

	return nil
}
