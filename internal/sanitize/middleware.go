package sanitize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/twingenie/twingenie/internal/platform/telemetry"
)

// MaxBodyBytes caps how much of a JSON body the middleware will buffer.
const MaxBodyBytes = 1 << 20

var errTrailingData = errors.New("unexpected data after JSON body")

type bodyKey struct{}

type options struct {
	maxBytes int64
	skip     []string
}

// Option adjusts RequestBodyWith.
type Option func(*options)

// WithMaxBytes replaces MaxBodyBytes as the buffering cap.
func WithMaxBytes(n int64) Option {
	return func(o *options) { o.maxBytes = n }
}

// SkipKeys leaves the named top-level fields verbatim. Use it for opaque
// payloads such as base64 audio that the length cap would corrupt.
func SkipKeys(keys ...string) Option {
	return func(o *options) { o.skip = append(o.skip, keys...) }
}

// RequestBody replaces a JSON-object request body with its sanitized form
// before calling next. The sanitized map is also published on the request
// context for validators. Non-JSON requests and non-object bodies pass
// through untouched.
func RequestBody(next http.Handler) http.Handler {
	return RequestBodyWith()(next)
}

// RequestBodyWith is RequestBody with options.
func RequestBodyWith(opts ...Option) func(http.Handler) http.Handler {
	o := options{maxBytes: MaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, o.maxBytes))
			if err != nil {
				reject(w, r, err)
				return
			}
			if len(bytes.TrimSpace(raw)) == 0 {
				r.Body = io.NopCloser(bytes.NewReader(raw))
				next.ServeHTTP(w, r)
				return
			}

			decoded, err := decode(raw)
			if err != nil {
				reject(w, r, err)
				return
			}

			obj, ok := decoded.(map[string]any)
			if !ok {
				r.Body = io.NopCloser(bytes.NewReader(raw))
				next.ServeHTTP(w, r)
				return
			}

			clean, err := mapExcept(obj, o.skip)
			if err != nil {
				reject(w, r, err)
				return
			}
			encoded, err := json.Marshal(clean)
			if err != nil {
				reject(w, r, err)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(encoded))
			r.ContentLength = int64(len(encoded))
			ctx := context.WithValue(r.Context(), bodyKey{}, clean)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// mapExcept sanitizes obj but carries the skipped keys over unchanged.
// A skipped key wins over any other key that sanitizes to the same name.
func mapExcept(obj map[string]any, skip []string) (map[string]any, error) {
	if len(skip) == 0 {
		return Map(obj)
	}
	kept := make(map[string]any, len(skip))
	rest := make(map[string]any, len(obj))
	for k, v := range obj {
		rest[k] = v
	}
	for _, k := range skip {
		if v, ok := rest[k]; ok {
			kept[k] = v
			delete(rest, k)
		}
	}
	clean, err := Map(rest)
	if err != nil {
		return nil, err
	}
	for k, v := range kept {
		clean[k] = v
	}
	return clean, nil
}

// BodyFromContext returns the sanitized body published by RequestBody.
func BodyFromContext(ctx context.Context) (map[string]any, bool) {
	m, ok := ctx.Value(bodyKey{}).(map[string]any)
	return m, ok
}

// WithBody stores an already sanitized body on ctx.
func WithBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingData
	}
	return v, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	telemetry.SanitizeFailures.Inc()
	slog.Warn("request sanitization failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid request data"})
}
