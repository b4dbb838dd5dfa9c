package http

import (
	"net/http"
)

// InterceptingWriter records the status code and byte count of a response
// on its way to the client.
type InterceptingWriter struct {
	http.ResponseWriter
	code    int
	written int64
}

// NewInterceptingWriter wraps w. The code defaults to http.StatusOK, since
// WriteHeader may never be called explicitly.
func NewInterceptingWriter(w http.ResponseWriter) *InterceptingWriter {
	return &InterceptingWriter{ResponseWriter: w, code: http.StatusOK}
}

// WriteHeader may not be explicitly called, so care must be taken to
// initialize w.code to its default value of http.StatusOK.
func (w *InterceptingWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *InterceptingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}

// Code returns the status code written to the client.
func (w *InterceptingWriter) Code() int { return w.code }

// Written returns the number of body bytes written to the client.
func (w *InterceptingWriter) Written() int64 { return w.written }

// Flush implements http.Flusher when the wrapped writer does.
func (w *InterceptingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
