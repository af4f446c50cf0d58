package ipc

import (
	"net"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
)

const dialTimeout = 5 * time.Second

// Client speaks the protocol over one connection.
type Client struct {
	conn net.Conn
}

// Dial connects to the daemon's socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, errors.New().Wrap(ErrConnect, err)
	}

	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Send writes one command. The daemon does not acknowledge commands.
func (c *Client) Send(cmd Command) error {
	return Encode(c.conn, cmd)
}

// Info asks for the current brightness and waits for the answer.
func (c *Client) Info() (Info, error) {
	if err := c.Send(GetInfo()); err != nil {
		return Info{}, err
	}

	reply, err := Decode(c.conn)
	if err != nil {
		return Info{}, errors.New().Wrap(ErrUnexpectedResponse, err)
	}
	if reply.Kind != KindGetInfoResponse {
		return Info{}, errors.New().WithMessage(ErrUnexpectedResponse, "Unexpected response: "+reply.String())
	}

	return reply.Info, nil
}

// Close announces the end of the session and closes the connection.
func (c *Client) Close() error {
	sendErr := c.Send(NotifyShutdown())
	closeErr := c.conn.Close()
	if sendErr != nil {
		return sendErr
	}

	return closeErr
}
