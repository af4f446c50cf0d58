package device

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/sysfs"
)

// DevicePattern matches the i2c-dev character devices.
const DevicePattern = "/dev/i2c-*"

// BusRef names an i2c bus and how to open it.
type BusRef struct {
	Name string
	Open BusOpener
}

// BusLister enumerates the i2c buses of the host.
type BusLister func() ([]BusRef, error)

// DDCBackend discovers monitors answering DDC/CI on the host's i2c buses.
type DDCBackend struct {
	list       BusLister
	newChannel func(bus string, open BusOpener) VCPChannel
}

// NewDDCBackend enumerates buses through periph's host drivers.
func NewDDCBackend() *DDCBackend {
	return NewDDCBackendWithBuses(HostBuses)
}

func NewDDCBackendWithBuses(list BusLister) *DDCBackend {
	return &DDCBackend{
		list: list,
		newChannel: func(bus string, open BusOpener) VCPChannel {
			return NewI2CChannel(bus, open)
		},
	}
}

// HostBuses loads periph's host drivers and lists the i2c buses present in
// /dev right now. The bus list periph registers is fixed at its first Init,
// so buses that appear later are found by globbing on every call.
func HostBuses() ([]BusRef, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.New().Wrap(ErrHostInitFailed, err)
	}

	return GlobBuses(DevicePattern, openSysfsBus)()
}

func openSysfsBus(number int) (i2c.BusCloser, error) {
	return sysfs.NewI2C(number)
}

// GlobBuses lists the device nodes matching pattern, named "<prefix><n>",
// in bus number order. Each bus is opened with open(n).
func GlobBuses(pattern string, open func(number int) (i2c.BusCloser, error)) BusLister {
	prefix := strings.TrimSuffix(filepath.Base(pattern), "*")

	return func() ([]BusRef, error) {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.New().Wrap(ErrDiscoveryFailed, err)
		}

		numbers := make(map[int]string, len(paths))
		for _, path := range paths {
			number, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), prefix))
			if err != nil || number < 0 {
				continue
			}
			numbers[number] = path
		}

		refs := make([]BusRef, 0, len(numbers))
		for number, path := range numbers {
			refs = append(refs, BusRef{
				Name: path,
				Open: func() (i2c.BusCloser, error) { return open(number) },
			})
		}
		sort.Slice(refs, func(i, j int) bool {
			return busNumber(refs[i].Name, prefix) < busNumber(refs[j].Name, prefix)
		})

		return refs, nil
	}
}

func busNumber(path, prefix string) int {
	number, _ := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), prefix))
	return number
}

func (*DDCBackend) Kind() Kind { return KindDDC }

// Discover queries every bus. Buses without a readable EDID carry no display
// and are skipped quietly; displays that fail the brightness read are
// reported.
func (b *DDCBackend) Discover(ctx context.Context) ([]Device, []error) {
	errFactory := errors.New()

	refs, err := b.list()
	if err != nil {
		return nil, []error{errFactory.Wrap(ErrDiscoveryFailed, err)}
	}

	var (
		devices []Device
		errs    []error
	)
	for _, ref := range refs {
		if ctx.Err() != nil {
			errs = append(errs, errFactory.Wrap(ErrDiscoveryFailed, ctx.Err()))
			break
		}

		edid, err := readEDID(ref.Open)
		if err != nil {
			logger.Debug().Str("bus", ref.Name).Err(err).Msg("Skipping i2c bus without display")
			continue
		}

		name := monitorName(edid)
		dev, err := NewDDCDevice(name, b.newChannel(ref.Name, ref.Open))
		if err != nil {
			errs = append(errs, errFactory.Wrap(ErrDiscoveryFailed, err).WithMessage(ref.Name+": "+name))
			continue
		}
		devices = append(devices, dev)
	}

	return devices, errs
}
