package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"time"
)

const bodyLogLimit = 1000

// HTTPTransport 出站 HTTP 请求日志
type HTTPTransport struct {
	Transport http.RoundTripper
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Transport: http.DefaultTransport}
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Duration("latency", elapsed),
		log.String("req_body", truncate(reqBody)),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "HTTP Error", append(fields, log.Any("err", err))...)
		return nil, err
	}

	var resBody []byte
	if resp.Body != nil {
		resBody, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(resBody))
	}
	fields = append(fields, log.Int("status", resp.StatusCode), log.String("res_body", truncate(resBody)))

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		log.ErrorContext(req.Context(), "HTTP Failed", fields...)
	case elapsed > 500*time.Millisecond:
		log.WarnContext(req.Context(), "HTTP Slow", fields...)
	default:
		log.InfoContext(req.Context(), "HTTP", fields...)
	}

	return resp, nil
}

func truncate(b []byte) string {
	if len(b) > bodyLogLimit {
		return string(b[:bodyLogLimit]) + "...[truncated]"
	}
	return string(b)
}
