package device

import (
	"bytes"
	"strings"

	"codeberg.org/mutker/backlightd/internal/errors"
	"periph.io/x/conn/v3/i2c"
)

const (
	edidAddr   uint16 = 0x50
	edidLength        = 128

	edidDescriptorOffset = 54
	edidDescriptorLength = 18
	edidDescriptorCount  = 4
	edidTagMonitorName   = 0xFC

	unknownMonitorName = "Unknown"
)

var edidHeader = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// readEDID reads the base EDID block of the display on bus.
func readEDID(open BusOpener) ([]byte, error) {
	errFactory := errors.New()

	bus, err := open()
	if err != nil {
		return nil, errFactory.Wrap(ErrBusOpenFailed, err)
	}
	defer bus.Close()

	edid := make([]byte, edidLength)
	dev := &i2c.Dev{Bus: bus, Addr: edidAddr}
	if err := dev.Tx([]byte{0x00}, edid); err != nil {
		return nil, errFactory.Wrap(ErrNoEDID, err)
	}
	if !bytes.Equal(edid[:len(edidHeader)], edidHeader) {
		return nil, errFactory.New(ErrNoEDID)
	}

	return edid, nil
}

// monitorName returns the display product name descriptor of an EDID block,
// or "Unknown" when there is none.
func monitorName(edid []byte) string {
	for i := range edidDescriptorCount {
		start := edidDescriptorOffset + i*edidDescriptorLength
		if start+edidDescriptorLength > len(edid) {
			break
		}
		desc := edid[start : start+edidDescriptorLength]

		if desc[0] != 0 || desc[1] != 0 || desc[2] != 0 || desc[3] != edidTagMonitorName {
			continue
		}

		text := desc[5:]
		if end := bytes.IndexByte(text, '\n'); end >= 0 {
			text = text[:end]
		}
		if name := strings.TrimSpace(string(text)); name != "" {
			return name
		}
	}

	return unknownMonitorName
}
