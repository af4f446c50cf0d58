// Package ipc implements the command protocol spoken on the control socket.
//
// Every message is a little-endian uint32 discriminant followed by the
// variant's payload: nothing, one byte holding a percent, or a uint32 mode.
// Message length is implied by the discriminant.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"codeberg.org/mutker/backlightd/internal/errors"
)

// DefaultSocketPath is where the daemon listens unless configured otherwise.
const DefaultSocketPath = "/run/backlightd.sock"

const maxPercent = 100

// Kind is the discriminant of a Command. Values are part of the wire format.
type Kind uint32

const (
	KindSetBrightness Kind = iota
	KindIncreaseBrightness
	KindDecreaseBrightness
	KindTurnOffMonitors
	KindTurnOnMonitors
	KindRefresh
	KindSetMode
	KindGetInfo
	KindGetInfoResponse
	KindNotifyShutdown
)

var kindNames = map[Kind]string{
	KindSetBrightness:      "set_brightness",
	KindIncreaseBrightness: "increase_brightness",
	KindDecreaseBrightness: "decrease_brightness",
	KindTurnOffMonitors:    "turn_off_monitors",
	KindTurnOnMonitors:     "turn_on_monitors",
	KindRefresh:            "refresh",
	KindSetMode:            "set_mode",
	KindGetInfo:            "get_info",
	KindGetInfoResponse:    "get_info_response",
	KindNotifyShutdown:     "notify_shutdown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("unknown(%d)", uint32(k))
}

func (k Kind) hasPercent() bool {
	return k == KindSetBrightness || k == KindIncreaseBrightness || k == KindDecreaseBrightness
}

// Mode is the daemon's brightness mode.
type Mode uint32

const (
	ModeAuto Mode = iota
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(m))
	}
}

// Info is the payload of a GetInfo response.
type Info struct {
	BrightnessPercent uint8 `json:"brightness_percent"`
}

// Command is one protocol message. Percent is used by the brightness
// variants, Mode by SetMode and Info by GetInfoResponse.
type Command struct {
	Kind    Kind
	Percent uint8
	Mode    Mode
	Info    Info
}

func SetBrightness(percent uint8) Command {
	return Command{Kind: KindSetBrightness, Percent: percent}
}

func IncreaseBrightness(delta uint8) Command {
	return Command{Kind: KindIncreaseBrightness, Percent: delta}
}

func DecreaseBrightness(delta uint8) Command {
	return Command{Kind: KindDecreaseBrightness, Percent: delta}
}

func TurnOffMonitors() Command { return Command{Kind: KindTurnOffMonitors} }
func TurnOnMonitors() Command  { return Command{Kind: KindTurnOnMonitors} }
func Refresh() Command         { return Command{Kind: KindRefresh} }
func GetInfo() Command         { return Command{Kind: KindGetInfo} }
func NotifyShutdown() Command  { return Command{Kind: KindNotifyShutdown} }

func SetMode(mode Mode) Command {
	return Command{Kind: KindSetMode, Mode: mode}
}

func GetInfoResponse(info Info) Command {
	return Command{Kind: KindGetInfoResponse, Info: info}
}

func (c Command) String() string {
	switch {
	case c.Kind.hasPercent():
		return fmt.Sprintf("%s(%d)", c.Kind, c.Percent)
	case c.Kind == KindSetMode:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Mode)
	case c.Kind == KindGetInfoResponse:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Info.BrightnessPercent)
	default:
		return c.Kind.String()
	}
}

// Validate checks the payload bounds of c.
func (c Command) Validate() error {
	errFactory := errors.New()

	switch {
	case c.Kind > KindNotifyShutdown:
		return errFactory.WithData(ErrUnknownCommand, uint32(c.Kind))
	case c.Kind.hasPercent() && c.Percent > maxPercent:
		return errFactory.WithData(ErrPercentOutOfRange, c.Percent)
	case c.Kind == KindGetInfoResponse && c.Info.BrightnessPercent > maxPercent:
		return errFactory.WithData(ErrPercentOutOfRange, c.Info.BrightnessPercent)
	case c.Kind == KindSetMode && c.Mode > ModeManual:
		return errFactory.WithData(ErrUnknownMode, uint32(c.Mode))
	}

	return nil
}

// Encode writes c to w as a single write.
func Encode(w io.Writer, c Command) error {
	if err := c.Validate(); err != nil {
		return err
	}

	buf := binary.LittleEndian.AppendUint32(make([]byte, 0, 8), uint32(c.Kind))
	switch {
	case c.Kind.hasPercent():
		buf = append(buf, c.Percent)
	case c.Kind == KindSetMode:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Mode))
	case c.Kind == KindGetInfoResponse:
		buf = append(buf, c.Info.BrightnessPercent)
	}

	_, err := w.Write(buf)

	return err
}

// Decode reads one command from r. It returns io.EOF, unwrapped, when r ends
// cleanly before a new message. Truncated or out of range messages are
// reported as ErrProtocol.
func Decode(r io.Reader) (Command, error) {
	errFactory := errors.New()

	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
		return Command{}, errFactory.Wrap(ErrProtocol, err)
	}

	c := Command{Kind: Kind(binary.LittleEndian.Uint32(head[:]))}
	if c.Kind > KindNotifyShutdown {
		return Command{}, errFactory.Wrap(ErrProtocol, errFactory.WithData(ErrUnknownCommand, uint32(c.Kind)))
	}

	switch {
	case c.Kind.hasPercent(), c.Kind == KindGetInfoResponse:
		var payload [1]byte
		if _, err := io.ReadFull(r, payload[:]); err != nil {
			return Command{}, errFactory.Wrap(ErrProtocol, truncated(err))
		}
		if c.Kind == KindGetInfoResponse {
			c.Info.BrightnessPercent = payload[0]
		} else {
			c.Percent = payload[0]
		}
	case c.Kind == KindSetMode:
		var payload [4]byte
		if _, err := io.ReadFull(r, payload[:]); err != nil {
			return Command{}, errFactory.Wrap(ErrProtocol, truncated(err))
		}
		c.Mode = Mode(binary.LittleEndian.Uint32(payload[:]))
	}

	if err := c.Validate(); err != nil {
		return Command{}, errFactory.Wrap(ErrProtocol, err)
	}

	return c, nil
}

// truncated turns a clean EOF inside a message into io.ErrUnexpectedEOF.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}
