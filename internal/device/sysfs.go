package device

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/backlightd/internal/errors"
)

const (
	sysfsBrightnessFile    = "brightness"
	sysfsMaxBrightnessFile = "max_brightness"
)

// SysfsDevice drives a firmware backlight exposed under /sys/class/backlight.
type SysfsDevice struct {
	path    string
	name    string
	mu      sync.Mutex
	maximum uint64
	raw     uint64
	percent uint8
}

// NewSysfsDevice reads the current and maximum brightness of the backlight
// directory at path.
func NewSysfsDevice(path string) (*SysfsDevice, error) {
	errFactory := errors.New()

	maximum, err := readUint(filepath.Join(path, sysfsMaxBrightnessFile))
	if err != nil {
		return nil, err
	}
	if maximum == 0 {
		return nil, errFactory.WithData(ErrZeroMaximum, path)
	}

	raw, err := readUint(filepath.Join(path, sysfsBrightnessFile))
	if err != nil {
		return nil, err
	}

	return &SysfsDevice{
		path:    path,
		name:    filepath.Base(path),
		maximum: maximum,
		raw:     raw,
		percent: rawToPercent(raw, maximum),
	}, nil
}

func readUint(path string) (uint64, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errFactory.Wrap(ErrDevice, err)
	}

	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrDevice, err).WithMessage("unable to parse " + path)
	}

	return value, nil
}

func (d *SysfsDevice) Name() string { return d.name }

func (*SysfsDevice) Kind() Kind { return KindSysfs }

func (d *SysfsDevice) Brightness() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.percent
}

// Raw returns the raw brightness and the raw maximum.
func (d *SysfsDevice) Raw() (raw, maximum uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.raw, d.maximum
}

func (d *SysfsDevice) SetBrightness(percent uint8) error {
	if err := checkPercent(percent); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	raw := percentToRaw(percent, d.maximum)
	path := filepath.Join(d.path, sysfsBrightnessFile)
	if err := writeAttribute(path, strconv.FormatUint(raw, 10)); err != nil {
		return errors.New().Wrap(ErrDevice, err).WithMessage(d.name + ": write brightness")
	}

	d.raw = raw
	d.percent = percent

	return nil
}

// writeAttribute writes to an existing attribute file without creating it.
func writeAttribute(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func (d *SysfsDevice) TurnOff() error {
	return errors.New().WithData(ErrNotSupported, d.name+": no power control")
}

func (d *SysfsDevice) TurnOn() error {
	return errors.New().WithData(ErrNotSupported, d.name+": no power control")
}

// SysfsBackend enumerates the entries of a backlight class directory.
type SysfsBackend struct {
	root string
}

func NewSysfsBackend(root string) *SysfsBackend {
	return &SysfsBackend{root: root}
}

func (*SysfsBackend) Kind() Kind { return KindSysfs }

// Discover returns one device per readable entry. A missing class directory
// means the host has no firmware backlight and is not an error.
func (b *SysfsBackend) Discover(ctx context.Context) ([]Device, []error) {
	errFactory := errors.New()

	entries, err := os.ReadDir(b.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, []error{errFactory.Wrap(ErrDiscoveryFailed, err)}
	}

	var (
		devices []Device
		errs    []error
	)
	for _, entry := range entries {
		if ctx.Err() != nil {
			errs = append(errs, errFactory.Wrap(ErrDiscoveryFailed, ctx.Err()))
			break
		}

		dev, err := NewSysfsDevice(filepath.Join(b.root, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices = append(devices, dev)
	}

	return devices, errs
}
