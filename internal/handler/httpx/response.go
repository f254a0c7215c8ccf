package httpx

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/termchat/termchat/internal/pkg/bytebuf"
)

var statusText = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
}

// errorPages maps a status to the page served for it.
var errorPages = map[int]string{
	400: "/400.html",
	403: "/403.html",
	404: "/404.html",
}

var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "text/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".pdf":  "application/pdf",
	".gz":   "application/x-gzip",
	".tar":  "application/x-tar",
}

func contentTypeFor(path string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "text/plain"
}

// writeHeaders emits the status line and headers into the write buffer. The
// body follows either inline or zero-copy from the mapped file.
func writeHeaders(wb *bytebuf.Buffer, status int, contentType string, contentLength int, keepAlive bool) {
	text, ok := statusText[status]
	if !ok {
		status, text = 400, statusText[400]
	}
	wb.AppendString(fmt.Sprintf("HTTP/1.1 %d %s\r\n", status, text))
	if keepAlive {
		wb.AppendString("Connection: keep-alive\r\n")
	} else {
		wb.AppendString("Connection: close\r\n")
	}
	wb.AppendString(fmt.Sprintf("Content-Type: %s\r\n", contentType))
	wb.AppendString(fmt.Sprintf("Content-Length: %d\r\n", contentLength))
	wb.AppendString("\r\n")
}
