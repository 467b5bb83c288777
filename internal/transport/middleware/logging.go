package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

const (
	omittedBody  = "[OMITTED]"
	filteredText = "[FILTERED]"

	// bodies beyond this size are logged as omitted
	maxLoggedBody = 16 << 10
)

// sensitiveFields are matched as substrings of header names and JSON keys.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
}

// LoggingMiddleware logs each request and its response. JSON bodies are
// logged with sensitive keys masked. Uploads, exports and oversized bodies
// are not captured.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			attrs := []any{
				"request_id", middleware.GetReqID(ctx),
				"trace_id", TraceIDFromContext(ctx),
			}

			logger.InfoContext(ctx, "incoming request", append(attrs,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", maskHeaders(r.Header),
				"body", captureRequestBody(r),
			)...)

			captured := &limitedBuffer{limit: maxLoggedBody}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(captured)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			body := omittedBody
			if isJSON(ww.Header().Get("Content-Type")) && !captured.truncated {
				body = maskBody(captured.Bytes())
			}

			logger.Log(ctx, levelFor(status), "response", append(attrs,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
				"body", body,
			)...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// captureRequestBody reads a JSON or form body for logging and puts it back
// on the request.
func captureRequestBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if isMultipart(r.Header.Get("Content-Type")) || r.ContentLength > maxLoggedBody {
		return omittedBody
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(raw), r.Body), Closer: r.Body}
	if err != nil || len(raw) > maxLoggedBody {
		return omittedBody
	}
	return maskBody(raw)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// limitedBuffer keeps at most limit bytes and remembers whether it dropped any.
type limitedBuffer struct {
	bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); len(p) > room {
		b.truncated = true
		if room > 0 {
			b.Buffer.Write(p[:room])
		}
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(name, field) {
			return true
		}
	}
	return false
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filteredText
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSensitive(string(body)) {
			return filteredText
		}
		return string(body)
	}

	masked, err := json.Marshal(maskValue(doc))
	if err != nil {
		return omittedBody
	}
	return string(masked)
}

func maskValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filteredText
				continue
			}
			out[key] = maskValue(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskValue(item)
		}
		return out
	default:
		return v
	}
}

func isMultipart(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
