package p2p

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Client sends requests to peers. Every request opens its own connection.
type Client struct {
	Timeout        time.Duration // Deadline for dial, write and read. Zero means none.
	MaxMessageSize int           // Largest response accepted.
}

// Send writes the command to the peer and returns its response without the
// line terminator.
func (c Client) Send(addr string, command string, payload string) (string, error) {
	m := newMetrics()

	resp, err := c.send(addr, Message{Command: command, Payload: payload})
	if err != nil {
		m.sent(command, resultError)
		return "", fmt.Errorf("%s %s: %w", addr, command, err)
	}

	if resp == InvalidMessage {
		m.sent(command, resultInvalid)
		return "", fmt.Errorf("%s %s: %w", addr, command, ErrInvalidMessage)
	}

	m.sent(command, resultOK)
	return resp, nil
}

func (c Client) send(addr string, msg Message) (string, error) {
	dialer := net.Dialer{Timeout: c.Timeout}

	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if c.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(c.Timeout))
	}

	if _, err := io.WriteString(conn, msg.String()+"\n"); err != nil {
		return "", err
	}

	max := c.MaxMessageSize
	if max <= 0 {
		max = DefaultMaxMessageSize
	}

	// The server closes the connection once the response is written.
	data, err := io.ReadAll(io.LimitReader(conn, int64(max)+1))
	if err != nil {
		return "", err
	}

	if len(data) > max {
		return "", fmt.Errorf("response larger than %d bytes", max)
	}

	if len(data) == 0 {
		return "", errors.New("empty response")
	}

	return strings.TrimSuffix(string(data), "\r\n"), nil
}
