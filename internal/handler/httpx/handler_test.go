package httpx

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/pkg/bytebuf"
)

type fakeAccounts struct {
	valid map[string]string
}

func (a *fakeAccounts) VerifyPassword(_ context.Context, username, password string) bool {
	return a.valid[username] == password
}

func (a *fakeAccounts) RegisterForm(_ context.Context, username, password string) bool {
	if _, taken := a.valid[username]; taken || username == "" || password == "" {
		return false
	}
	a.valid[username] = password
	return true
}

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	pages := map[string]string{
		"index.html":   "<html>index</html>",
		"login.html":   "<html>login</html>",
		"welcome.html": "<html>welcome</html>",
		"error.html":   "<html>error</html>",
		"404.html":     "<html>not found</html>",
		"403.html":     "<html>forbidden</html>",
		"400.html":     "<html>bad request</html>",
		"style.css":    "body {}",
	}
	for name, content := range pages {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	f := NewHandlerFactory(dir, &fakeAccounts{valid: map[string]string{"alice": "secret1"}},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f.New("test-conn"), dir
}

// response runs one request through the handler and returns status line,
// headers and body (header buffer + mapped file).
func response(t *testing.T, h *Handler, raw string) (string, string) {
	t.Helper()
	rb, wb := bytebuf.New(0), bytebuf.New(0)
	rb.AppendString(raw)
	require.True(t, h.Process(rb, wb))
	head := wb.RetrieveAllString()
	body := string(h.File())
	h.ReleaseFile()
	return head, body
}

func TestServeIndexAlias(t *testing.T) {
	h, _ := newTestHandler(t)
	head, body := response(t, h, "GET / HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, head, "Content-Type: text/html")
	assert.Contains(t, head, "Content-Length: 18")
	assert.Equal(t, "<html>index</html>", body)
	assert.True(t, h.KeepAlive())
}

func TestServeCSS(t *testing.T) {
	h, _ := newTestHandler(t)
	head, body := response(t, h, "GET /style.css HTTP/1.1\r\n\r\n")
	assert.Contains(t, head, "Content-Type: text/css")
	assert.Equal(t, "body {}", body)
}

func TestNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	head, body := response(t, h, "GET /missing.html HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 404 Not Found\r\n"))
	assert.Equal(t, "<html>not found</html>", body)
	assert.True(t, h.KeepAlive(), "a 404 does not end a keep-alive connection")
}

func TestPathTraversalForbidden(t *testing.T) {
	h, _ := newTestHandler(t)
	head, _ := response(t, h, "GET /../etc/passwd HTTP/1.1\r\n\r\n")
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 403 Forbidden\r\n"))
}

func TestHeadOmitsBody(t *testing.T) {
	h, _ := newTestHandler(t)
	head, body := response(t, h, "HEAD / HTTP/1.1\r\n\r\n")
	assert.Contains(t, head, "Content-Length: 18")
	assert.Empty(t, body)
}

func TestFormLogin(t *testing.T) {
	h, _ := newTestHandler(t)

	form := "username=alice&password=secret1"
	head, body := response(t, h,
		"POST /login HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n"+
			"Content-Length: 31\r\n\r\n"+form)
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 200"))
	assert.Equal(t, "<html>welcome</html>", body)

	form = "username=alice&password=wrongpw"
	_, body = response(t, h,
		"POST /login HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n"+
			"Content-Length: 31\r\n\r\n"+form)
	assert.Equal(t, "<html>error</html>", body)
}

func TestFormRegister(t *testing.T) {
	h, _ := newTestHandler(t)
	form := "username=bob&password=secret1"
	_, body := response(t, h,
		"POST /register HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n"+
			"Content-Length: 29\r\n\r\n"+form)
	assert.Equal(t, "<html>login</html>", body, "successful registration lands on the login page")

	// Same username again fails.
	_, body = response(t, h,
		"POST /register HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\n"+
			"Content-Length: 29\r\n\r\n"+form)
	assert.Equal(t, "<html>error</html>", body)
}

func TestMalformedRequestClosesConnection(t *testing.T) {
	h, _ := newTestHandler(t)
	head, _ := response(t, h, "NOT-HTTP\r\n\r\n")
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 400 Bad Request\r\n"))
	assert.Contains(t, head, "Connection: close")
	assert.False(t, h.KeepAlive())
}

func TestConnectionCloseHonored(t *testing.T) {
	h, _ := newTestHandler(t)
	head, _ := response(t, h, "GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	assert.Contains(t, head, "Connection: close")
	assert.False(t, h.KeepAlive())
}

// Two requests arriving in one read must both be answered from a single
// Process call; with oneshot arming there may be no further readiness event
// to pick up the second one.
func TestPipelinedRequestsAnsweredTogether(t *testing.T) {
	h, _ := newTestHandler(t)
	rb, wb := bytebuf.New(0), bytebuf.New(0)
	rb.AppendString("GET / HTTP/1.1\r\n\r\nGET /style.css HTTP/1.1\r\n\r\n")

	require.True(t, h.Process(rb, wb))
	assert.Zero(t, rb.Readable())

	out := wb.RetrieveAllString() + string(h.File())
	h.ReleaseFile()
	assert.Equal(t, 2, strings.Count(out, "HTTP/1.1 200 OK\r\n"))
	first := strings.Index(out, "<html>index</html>")
	second := strings.Index(out, "body {}")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second, "bodies must not interleave out of order")
}

func TestKeepAliveAcrossRequests(t *testing.T) {
	h, _ := newTestHandler(t)
	for i := 0; i < 3; i++ {
		head, body := response(t, h, "GET / HTTP/1.1\r\n\r\n")
		require.True(t, strings.HasPrefix(head, "HTTP/1.1 200"), "request %d", i)
		require.Equal(t, "<html>index</html>", body)
		require.True(t, h.KeepAlive())
	}
}
