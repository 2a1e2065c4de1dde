package httpx

import "net/http"

// StatusWriter wraps a ResponseWriter and records whether a status line has
// been sent. Redirect handlers use it to skip redirects on committed responses.
type StatusWriter struct {
	inner  http.ResponseWriter
	status int
	wrote  bool
}

func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{inner: w}
}

func (sw *StatusWriter) Header() http.Header {
	return sw.inner.Header()
}

func (sw *StatusWriter) WriteHeader(status int) {
	sw.status = status
	sw.wrote = true
	sw.inner.WriteHeader(status)
}

func (sw *StatusWriter) Write(b []byte) (int, error) {
	if !sw.wrote {
		sw.status = http.StatusOK
		sw.wrote = true
	}

	return sw.inner.Write(b)
}

func (sw *StatusWriter) Status() int {
	return sw.status
}

func (sw *StatusWriter) Written() bool {
	return sw.wrote
}

// Committed reports whether a response has already been sent through w.
// Writers that do not track commit state report false.
func Committed(w http.ResponseWriter) bool {
	cw, ok := w.(interface{ Written() bool })
	return ok && cw.Written()
}
