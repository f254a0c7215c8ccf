// Package tcp is the epoll front end shared by the HTTP and binary
// protocols. A single event loop owns the listener and the timer wheel;
// ready connections run as worker-pool tasks, with EPOLLONESHOT guaranteeing
// at most one task per connection at a time.
package tcp

import (
	"github.com/termchat/termchat/internal/pkg/bytebuf"
	"github.com/termchat/termchat/internal/service"
)

// Handler consumes the read buffer and stages responses in the write
// buffer. Process returns false when the connection must drop immediately.
type Handler interface {
	Process(rb, wb *bytebuf.Buffer) bool
	// KeepAlive is consulted after the staged response is fully written.
	KeepAlive() bool
}

// FileResponder is implemented by handlers that stage a zero-copy body to
// be written after the header buffer.
type FileResponder interface {
	File() []byte
	ReleaseFile()
}

// Factories build a protocol handler once per connection, after detection.
type Factories struct {
	HTTP   func(sess service.Session) Handler
	Binary func(sess service.Session) Handler
}

// Protocol of a connection, fixed for its lifetime by the first four bytes.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolHTTP
	ProtocolBinary
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP:
		return "http"
	case ProtocolBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// httpPrefixes are the method prefixes that mark a connection as HTTP.
// Anything else is the length-prefixed binary protocol.
var httpPrefixes = [...]string{"GET ", "POST", "HEAD", "PUT ", "DELE"}

// DetectProtocol inspects the first four bytes of a connection. Returns
// ProtocolUnknown while fewer than four bytes are available.
func DetectProtocol(prefix []byte) Protocol {
	if len(prefix) < 4 {
		return ProtocolUnknown
	}
	head := string(prefix[:4])
	for _, p := range httpPrefixes {
		if head == p {
			return ProtocolHTTP
		}
	}
	return ProtocolBinary
}
