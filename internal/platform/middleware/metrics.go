// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPRecorder receives one observation per finished request.
type HTTPRecorder interface {
	RecordHTTP(method, route string, status int, seconds float64)
}

type metricsWriter struct {
	http.ResponseWriter
	status int
}

func (writer *metricsWriter) WriteHeader(code int) {
	writer.status = code
	writer.ResponseWriter.WriteHeader(code)
}

// Instrument reports request counts and latency labelled by the matched chi
// route pattern, which keeps label cardinality bounded.
func Instrument(recorder HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()
			wrapped := &metricsWriter{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(wrapped, request)

			route := "unmatched"
			if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
				if pattern := routeContext.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			recorder.RecordHTTP(request.Method, route, wrapped.status, time.Since(startTime).Seconds())
		})
	}
}
