package observability

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const httpStatusServerError = 500

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	return sw.ResponseWriter.Write(buf)
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Hijack lets WebSocket upgrades take over the connection.
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	sw.written = true
	sw.statusCode = http.StatusSwitchingProtocols

	return http.NewResponseController(sw.ResponseWriter).Hijack() //nolint:wrapcheck // passthrough.
}

// HTTPMiddleware wraps next with a server span and RED metrics per request.
// The route pattern names the span and the op label. red may be nil.
func HTTPMiddleware(tracer trace.Tracer, red *REDMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		start := time.Now()
		route := hr.URL.Path

		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, hr.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				attribute.String("http.target", hr.URL.Path),
			),
		)
		defer span.End()

		done := red.TrackInflight(ctx, hr.Method)
		defer done()

		sw := &statusWriter{ResponseWriter: rw}
		req := hr.WithContext(ctx)
		next.ServeHTTP(sw, req)

		if req.Pattern != "" {
			route = req.Pattern
			span.SetName(route)
		}

		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

		status := StatusOK
		if sw.statusCode >= httpStatusServerError {
			status = StatusError

			span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
		}

		red.RecordRequest(ctx, route, status, time.Since(start))
	})
}
