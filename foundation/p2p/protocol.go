// Package p2p provides the transport for the node to node line protocol.
// Every connection carries exactly one request and one response: the client
// writes `COMMAND` or `COMMAND(payload)` terminated by a newline, the server
// answers with `RESPONSE\r\n` and closes the connection.
package p2p

import (
	"errors"
	"fmt"
	"strings"
)

// Set of commands understood by the node.
const (
	CmdPing           = "PING"
	CmdGetBlocks      = "GET_BLOCKS"
	CmdGetBlock       = "GET_BLOCK"
	CmdNewBlock       = "NEW_BLOCK"
	CmdNewTransaction = "NEW_TRANSACTION"
	CmdNewPeer        = "NEW_PEER"
)

// Set of fixed responses.
const (
	Pong = "OK"
	Ack  = "Ok"
)

// InvalidMessage is the response for an unknown command or a payload the
// handler can't decode.
const InvalidMessage = "Invalid MESSAGE"

// DefaultMaxMessageSize is the largest request or response accepted when the
// configuration leaves it unset.
const DefaultMaxMessageSize = 4 << 20

// ErrInvalidMessage is returned by handlers when the payload can't be used.
// The server answers these with InvalidMessage.
var ErrInvalidMessage = errors.New("invalid message")

// =============================================================================

// Message is a single parsed request line.
type Message struct {
	Command string
	Payload string
}

// Parse decodes a request line. The payload is everything between the first
// '(' and the last ')'.
func Parse(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")

	open := strings.IndexByte(line, '(')
	if open == -1 {
		if !isCommand(line) {
			return Message{}, fmt.Errorf("%w: bad command %q", ErrInvalidMessage, line)
		}
		return Message{Command: line}, nil
	}

	closing := strings.LastIndexByte(line, ')')
	if closing != len(line)-1 || closing < open {
		return Message{}, fmt.Errorf("%w: unterminated payload", ErrInvalidMessage)
	}

	msg := Message{
		Command: line[:open],
		Payload: line[open+1 : closing],
	}

	if !isCommand(msg.Command) {
		return Message{}, fmt.Errorf("%w: bad command %q", ErrInvalidMessage, msg.Command)
	}

	return msg, nil
}

// String encodes the message as a request line without the terminator.
func (m Message) String() string {
	if m.Payload == "" {
		return m.Command
	}

	return m.Command + "(" + m.Payload + ")"
}

// isCommand checks the command is made of upper case letters and underscores.
func isCommand(s string) bool {
	if s == "" {
		return false
	}

	for _, c := range []byte(s) {
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}

	return true
}
