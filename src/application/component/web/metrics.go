package web

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/input-output-hk/boxoffice/src/application"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (self *statusRecorder) WriteHeader(status int) {
	if self.status == 0 {
		self.status = status
	}
	self.ResponseWriter.WriteHeader(status)
}

func (self *statusRecorder) Write(b []byte) (int, error) {
	if self.status == 0 {
		self.status = http.StatusOK
	}
	return self.ResponseWriter.Write(b)
}

func (self *statusRecorder) Flush() {
	if flusher, ok := self.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Needed for the websocket upgrade.
func (self *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := self.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("ResponseWriter does not support hijacking")
	}
	self.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (self *Web) metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		route := "unknown"
		if current := mux.CurrentRoute(req); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(recorder, req)

		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}
		application.HttpRequestDuration.
			WithLabelValues(route, req.Method, strconv.Itoa(recorder.status)).
			Observe(time.Since(start).Seconds())
	})
}
