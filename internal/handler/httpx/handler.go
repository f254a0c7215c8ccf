package httpx

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/termchat/termchat/internal/pkg/bytebuf"
)

// Accounts is the slice of the auth service the form endpoints need.
type Accounts interface {
	VerifyPassword(ctx context.Context, username, password string) bool
	RegisterForm(ctx context.Context, username, password string) bool
}

// Aliases from pretty paths to the files behind them.
var pathAliases = map[string]string{
	"/":         "/index.html",
	"/index":    "/index.html",
	"/login":    "/login.html",
	"/register": "/register.html",
	"/welcome":  "/welcome.html",
	"/video":    "/video.html",
	"/picture":  "/picture.html",
}

// Handler serves one HTTP connection. File bodies are mmap'd and handed to
// the connection for zero-copy writev alongside the header buffer.
type Handler struct {
	staticDir string
	accounts  Accounts
	log       *slog.Logger

	req       *Request
	keepAlive bool
	file      []byte
}

// HandlerFactory builds one Handler per detected HTTP connection.
type HandlerFactory struct {
	StaticDir string
	Accounts  Accounts
	Log       *slog.Logger
}

func NewHandlerFactory(staticDir string, accounts Accounts, log *slog.Logger) *HandlerFactory {
	return &HandlerFactory{StaticDir: staticDir, Accounts: accounts, Log: log}
}

func (f *HandlerFactory) New(connID string) *Handler {
	return &Handler{
		staticDir: f.StaticDir,
		accounts:  f.Accounts,
		log:       f.Log.With(slog.String("conn", connID)),
		req:       NewRequest(),
		keepAlive: true,
	}
}

// KeepAlive reports whether the connection survives the pending response.
func (h *Handler) KeepAlive() bool { return h.keepAlive }

// File returns the mapped body to write after the header buffer, if any.
func (h *Handler) File() []byte { return h.file }

// ReleaseFile unmaps the body once the connection has written it.
func (h *Handler) ReleaseFile() {
	unmapFile(h.file)
	h.file = nil
}

// Process parses whatever bytes are available and stages a response for
// every complete request in the buffer; pipelined requests must not wait
// for the next readiness event. Returns false when the request is beyond
// repair and the connection must drop without a response.
func (h *Handler) Process(rb, wb *bytebuf.Buffer) bool {
	for {
		if !h.req.Parse(rb) {
			h.log.Warn("malformed request")
			h.keepAlive = false
			h.respondError(wb, 400)
			return true
		}
		if !h.req.Complete() {
			return true // wait for the rest of the request
		}

		h.keepAlive = h.req.KeepAlive()
		h.route(wb)
		h.req.Reset()
		if !h.keepAlive || rb.Readable() == 0 {
			return true
		}
		// A staged zero-copy body would interleave with the next response's
		// headers, so inline it before parsing on.
		if h.file != nil {
			wb.Append(h.file)
			h.ReleaseFile()
		}
	}
}

func (h *Handler) route(wb *bytebuf.Buffer) {
	h.log.Info("request",
		slog.String("method", h.req.Method),
		slog.String("path", h.req.Path))

	switch h.req.Method {
	case "GET", "HEAD":
		h.serveFile(wb, h.req.Path)
	case "POST":
		h.handleForm(wb)
	default:
		h.respondError(wb, 400)
	}
}

func (h *Handler) handleForm(wb *bytebuf.Buffer) {
	ctx := context.Background()
	username := h.req.Form["username"]
	password := h.req.Form["password"]

	switch h.req.Path {
	case "/login", "/login.html":
		if h.accounts.VerifyPassword(ctx, username, password) {
			h.serveFile(wb, "/welcome.html")
		} else {
			h.serveFile(wb, "/error.html")
		}
	case "/register", "/register.html":
		if h.accounts.RegisterForm(ctx, username, password) {
			h.serveFile(wb, "/login.html")
		} else {
			h.serveFile(wb, "/error.html")
		}
	default:
		h.respondError(wb, 404)
	}
}

func (h *Handler) serveFile(wb *bytebuf.Buffer, path string) {
	if alias, ok := pathAliases[path]; ok {
		path = alias
	}
	// Path traversal ends the lookup before it starts.
	if strings.Contains(path, "..") {
		h.respondError(wb, 403)
		return
	}

	full := filepath.Join(h.staticDir, filepath.FromSlash(path))
	data, err := mapFile(full)
	if err != nil {
		if os.IsPermission(err) {
			h.respondError(wb, 403)
		} else {
			h.respondError(wb, 404)
		}
		return
	}
	h.stage(wb, 200, path, data)
}

func (h *Handler) respondError(wb *bytebuf.Buffer, status int) {
	page := errorPages[status]
	if page != "" {
		if data, err := mapFile(filepath.Join(h.staticDir, filepath.FromSlash(page))); err == nil {
			h.stage(wb, status, page, data)
			return
		}
	}
	body := statusText[status]
	writeHeaders(wb, status, "text/plain", len(body), h.keepAlive)
	wb.AppendString(body)
}

// stage writes headers into wb and parks the mapped body for the
// connection's writev.
func (h *Handler) stage(wb *bytebuf.Buffer, status int, path string, data []byte) {
	writeHeaders(wb, status, contentTypeFor(path), len(data), h.keepAlive)
	if h.req.Method == "HEAD" {
		unmapFile(data)
		return
	}
	h.file = data
}
