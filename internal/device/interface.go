package device

import "context"

// Kind names the control channel behind a Device.
type Kind string

const (
	KindSysfs Kind = "sysfs"
	KindDDC   Kind = "ddc"
)

// Device is one monitor's brightness control. Brightness reports the cached
// percent from discovery or the last successful SetBrightness; it does no I/O.
type Device interface {
	Name() string
	Kind() Kind
	Brightness() uint8
	SetBrightness(percent uint8) error
	// TurnOff and TurnOn fail with ErrNotSupported on backends without
	// power control.
	TurnOff() error
	TurnOn() error
}

// Backend enumerates the devices reachable through one control channel.
// Devices that fail to initialize are reported in the error slice and left
// out of the result.
type Backend interface {
	Kind() Kind
	Discover(ctx context.Context) ([]Device, []error)
}

// VCPChannel reads and writes MCCS VCP features of one DDC/CI display.
type VCPChannel interface {
	GetVCP(code byte) (current, maximum uint16, err error)
	SetVCP(code byte, value uint16) error
}
