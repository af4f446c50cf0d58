package device

import (
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"periph.io/x/conn/v3/i2c"
)

const (
	ddcAddr uint16 = 0x37

	// source byte of every host to display message
	hostAddr byte = 0x51
	// checksum seed of requests, the display's 8-bit write address
	requestChecksumSeed byte = 0x6E
	// checksum seed of replies
	replyChecksumSeed byte = 0x50

	getVCPOpcode      byte = 0x01
	getVCPReplyOpcode byte = 0x02
	setVCPOpcode      byte = 0x03

	getVCPReplyLength = 11
	lengthFlag        = 0x80

	getReplyDelay = 40 * time.Millisecond
	setDelay      = 50 * time.Millisecond
)

// BusOpener opens an i2c bus for one transaction.
type BusOpener func() (i2c.BusCloser, error)

// I2CChannel speaks DDC/CI to the display attached to one i2c bus. The bus
// is opened for every transaction and closed right after.
type I2CChannel struct {
	bus   string
	open  BusOpener
	sleep func(time.Duration)
}

func NewI2CChannel(bus string, open BusOpener) *I2CChannel {
	return &I2CChannel{bus: bus, open: open, sleep: time.Sleep}
}

func (c *I2CChannel) GetVCP(code byte) (current, maximum uint16, err error) {
	errFactory := errors.New()

	request := frame(getVCPOpcode, code)
	reply := make([]byte, getVCPReplyLength)

	err = c.transact(func(dev *i2c.Dev) error {
		if err := dev.Tx(request, nil); err != nil {
			return err
		}
		c.sleep(getReplyDelay)

		return dev.Tx(nil, reply)
	})
	if err != nil {
		return 0, 0, err
	}

	if checksum(replyChecksumSeed, reply[:len(reply)-1]) != reply[len(reply)-1] {
		return 0, 0, errFactory.WithData(ErrBadChecksum, c.bus)
	}
	if reply[0] != requestChecksumSeed || reply[1] != lengthFlag|8 || reply[2] != getVCPReplyOpcode || reply[4] != code {
		return 0, 0, errFactory.WithData(ErrBadReply, reply)
	}
	if reply[3] != 0 {
		return 0, 0, errFactory.WithData(ErrUnsupportedVCP, code)
	}

	maximum = uint16(reply[6])<<8 | uint16(reply[7])
	current = uint16(reply[8])<<8 | uint16(reply[9])

	return current, maximum, nil
}

func (c *I2CChannel) SetVCP(code byte, value uint16) error {
	request := frame(setVCPOpcode, code, byte(value>>8), byte(value))

	err := c.transact(func(dev *i2c.Dev) error {
		return dev.Tx(request, nil)
	})
	c.sleep(setDelay)

	return err
}

func (c *I2CChannel) transact(fn func(dev *i2c.Dev) error) error {
	errFactory := errors.New()

	bus, err := c.open()
	if err != nil {
		return errFactory.Wrap(ErrBusOpenFailed, err).WithMessage("open " + c.bus)
	}
	defer bus.Close()

	if err := fn(&i2c.Dev{Bus: bus, Addr: ddcAddr}); err != nil {
		return errFactory.Wrap(ErrDevice, err).WithMessage(c.bus + ": DDC/CI transfer")
	}

	return nil
}

// frame builds a host to display message: source, length, payload, checksum.
func frame(payload ...byte) []byte {
	msg := make([]byte, 0, len(payload)+3)
	msg = append(msg, hostAddr, lengthFlag|byte(len(payload)))
	msg = append(msg, payload...)

	return append(msg, checksum(requestChecksumSeed, msg))
}

func checksum(seed byte, data []byte) byte {
	sum := seed
	for _, b := range data {
		sum ^= b
	}

	return sum
}
