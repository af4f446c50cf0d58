// Package devicetest provides in-memory devices and backends for tests.
package devicetest

import (
	"context"
	"sync"

	"codeberg.org/mutker/backlightd/internal/device"
	"codeberg.org/mutker/backlightd/internal/errors"
)

// Device is an in-memory device.Device. Failures are armed per operation.
type Device struct {
	DeviceName string
	DeviceKind device.Kind

	mu       sync.Mutex
	percent  uint8
	powered  bool
	noPower  bool
	setErr   error
	powerErr error
	sets     []uint8
	offs     int
	ons      int
}

func NewDevice(name string, percent uint8) *Device {
	return &Device{DeviceName: name, DeviceKind: device.KindDDC, percent: percent, powered: true}
}

// NewSysfsDevice returns a device without power control.
func NewSysfsDevice(name string, percent uint8) *Device {
	d := NewDevice(name, percent)
	d.DeviceKind = device.KindSysfs
	d.noPower = true

	return d
}

func (d *Device) Name() string      { return d.DeviceName }
func (d *Device) Kind() device.Kind { return d.DeviceKind }

func (d *Device) Brightness() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.percent
}

func (d *Device) SetBrightness(percent uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.setErr != nil {
		return d.setErr
	}
	d.percent = percent
	d.sets = append(d.sets, percent)

	return nil
}

func (d *Device) TurnOff() error {
	return d.setPower(false)
}

func (d *Device) TurnOn() error {
	return d.setPower(true)
}

func (d *Device) setPower(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.noPower {
		return errors.New().WithData(device.ErrNotSupported, d.DeviceName)
	}
	if d.powerErr != nil {
		return d.powerErr
	}
	d.powered = on
	if on {
		d.ons++
	} else {
		d.offs++
	}

	return nil
}

// FailSet makes SetBrightness return a device error, or succeed again when
// fail is false.
func (d *Device) FailSet(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.setErr = nil
	if fail {
		d.setErr = errors.New().WithData(device.ErrDevice, d.DeviceName)
	}
}

// FailPower makes TurnOff and TurnOn return a device error.
func (d *Device) FailPower(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.powerErr = nil
	if fail {
		d.powerErr = errors.New().WithData(device.ErrDevice, d.DeviceName)
	}
}

// Sets returns every percent written successfully.
func (d *Device) Sets() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]uint8(nil), d.sets...)
}

func (d *Device) Powered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.powered
}

// PowerCalls returns how many TurnOff and TurnOn calls succeeded.
func (d *Device) PowerCalls() (offs, ons int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.offs, d.ons
}

// Backend returns a scripted device list on every Discover call.
type Backend struct {
	BackendKind device.Kind

	mu        sync.Mutex
	devices   []device.Device
	errs      []error
	discovers int
	hook      func(call int)
}

func NewBackend(devices ...device.Device) *Backend {
	return &Backend{BackendKind: device.KindDDC, devices: devices}
}

func (b *Backend) Kind() device.Kind { return b.BackendKind }

func (b *Backend) Discover(context.Context) ([]device.Device, []error) {
	b.mu.Lock()
	b.discovers++
	call := b.discovers
	hook := b.hook
	devices := append([]device.Device(nil), b.devices...)
	errs := append([]error(nil), b.errs...)
	b.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	return devices, errs
}

// SetDevices changes what the next Discover returns.
func (b *Backend) SetDevices(devices ...device.Device) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.devices = devices
}

// SetErrors makes Discover report errs alongside the devices.
func (b *Backend) SetErrors(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.errs = errs
}

// OnDiscover runs hook, with the 1-based call number, inside every Discover.
func (b *Backend) OnDiscover(hook func(call int)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hook = hook
}

func (b *Backend) Discovers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.discovers
}
