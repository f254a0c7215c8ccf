// Package httpx implements the minimal HTTP/1.1 surface that serves the
// static pages and the form login. It shares the connection machinery with
// the binary protocol; which handler runs is decided once per connection by
// protocol detection.
package httpx

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/termchat/termchat/internal/pkg/bytebuf"
)

type parseState int

const (
	stateRequestLine parseState = iota
	stateHeaders
	stateBody
	stateFinished
)

var crlf = []byte("\r\n")

// Request is an incrementally parsed HTTP request. Parse consumes from the
// connection buffer and may be called again when more bytes arrive.
type Request struct {
	state   parseState
	Method  string
	Path    string
	Version string
	Headers map[string]string
	Form    map[string]string
	body    []byte
	bodyLen int
}

func NewRequest() *Request {
	return &Request{Headers: map[string]string{}, Form: map[string]string{}}
}

// Reset prepares the parser for the next request on a keep-alive connection.
func (r *Request) Reset() {
	*r = Request{Headers: map[string]string{}, Form: map[string]string{}}
}

// Complete reports whether a full request has been parsed.
func (r *Request) Complete() bool { return r.state == stateFinished }

// KeepAlive follows HTTP/1.1 defaults: persistent unless the client says
// close, opt-in for 1.0.
func (r *Request) KeepAlive() bool {
	conn := strings.ToLower(r.Headers["connection"])
	if r.Version == "HTTP/1.1" {
		return conn != "close"
	}
	return conn == "keep-alive"
}

// Parse consumes as much of the buffer as the current state allows.
// Returns false on a malformed request; incomplete input is not an error.
func (r *Request) Parse(rb *bytebuf.Buffer) bool {
	for r.state != stateFinished && rb.Readable() > 0 {
		if r.state == stateBody {
			if !r.consumeBody(rb) {
				return true // need more bytes
			}
			continue
		}
		data := rb.Peek()
		idx := bytes.Index(data, crlf)
		if idx < 0 {
			return true // line still incomplete
		}
		line := string(data[:idx])
		rb.Retrieve(idx + len(crlf))

		switch r.state {
		case stateRequestLine:
			if !r.parseRequestLine(line) {
				return false
			}
			r.state = stateHeaders
		case stateHeaders:
			if line == "" {
				r.endOfHeaders()
				continue
			}
			if !r.parseHeader(line) {
				return false
			}
		}
	}
	return true
}

func (r *Request) parseRequestLine(line string) bool {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return false
	}
	r.Method = parts[0]
	r.Version = parts[2]

	path, query, _ := strings.Cut(parts[1], "?")
	decoded, ok := percentDecode(path)
	if !ok {
		return false
	}
	r.Path = decoded
	if query != "" {
		parseURLEncoded(query, r.Form)
	}
	return true
}

func (r *Request) parseHeader(line string) bool {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return false
	}
	r.Headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	return true
}

func (r *Request) endOfHeaders() {
	if cl, ok := r.Headers["content-length"]; ok {
		if n, err := strconv.Atoi(cl); err == nil && n > 0 {
			r.bodyLen = n
			r.state = stateBody
			return
		}
	}
	r.state = stateFinished
}

func (r *Request) consumeBody(rb *bytebuf.Buffer) bool {
	need := r.bodyLen - len(r.body)
	data := rb.Peek()
	if len(data) > need {
		data = data[:need]
	}
	r.body = append(r.body, data...)
	rb.Retrieve(len(data))
	if len(r.body) < r.bodyLen {
		return false
	}
	if strings.HasPrefix(r.Headers["content-type"], "application/x-www-form-urlencoded") {
		parseURLEncoded(string(r.body), r.Form)
	}
	r.state = stateFinished
	return true
}

// parseURLEncoded fills dst from a key=value&key=value string.
func parseURLEncoded(s string, dst map[string]string) {
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, ok1 := percentDecode(key)
		v, ok2 := percentDecode(value)
		if ok1 && ok2 {
			dst[k] = v
		}
	}
}

// percentDecode handles %XX escapes and '+' as space.
func percentDecode(s string) (string, bool) {
	if !strings.ContainsAny(s, "%+") {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 >= len(s) {
				return "", false
			}
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if !ok1 || !ok2 {
				return "", false
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), true
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
