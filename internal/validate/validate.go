// Package validate holds the per-endpoint request validators. Each check is
// a pure function returning *Error; the middleware wrappers turn an *Error
// into an HTTP 400 with a JSON {"error": ...} body.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/twingenie/twingenie/internal/platform/telemetry"
	"github.com/twingenie/twingenie/internal/sanitize"
)

// Error is a caller-input rejection. It is never retried.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func badRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var fieldValidate = validator.New()

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidUUID reports whether s is five hyphenated hex groups (8-4-4-4-12),
// in either case.
func IsValidUUID(s string) bool {
	return fieldValidate.Var(strings.ToLower(s), "required,uuid_rfc4122") == nil
}

// truthy mirrors how the web client treats JSON values: null, false, "",
// and numeric zero are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	default:
		return true
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// bodyOf returns the request body as a JSON object. It prefers the map the
// sanitizer published; otherwise it decodes at most limit bytes and restores
// the body for the next handler. A body that is absent or not an object
// yields an empty map, so field checks report the field as missing. A body
// over limit is an error, never a silently cut object.
func bodyOf(w http.ResponseWriter, r *http.Request, limit int64) (map[string]any, error) {
	if m, ok := sanitize.BodyFromContext(r.Context()); ok {
		return m, nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		return map[string]any{}, nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return map[string]any{}, nil
	}
	return m, nil
}

func writeError(w http.ResponseWriter, validatorName string, err error) {
	var verr *Error
	if !errors.As(err, &verr) {
		verr = badRequest("Invalid request data")
	}
	telemetry.ValidationRejections.WithLabelValues(validatorName).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(verr.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": verr.Message})
}

// bodyValidator adapts a pure body check into middleware.
func bodyValidator(name string, check func(map[string]any) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := bodyOf(w, r, sanitize.MaxBodyBytes)
			if err != nil {
				writeError(w, name, badRequest("Invalid request data"))
				return
			}
			if err := check(body); err != nil {
				writeError(w, name, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func stringField(body map[string]any, key string) (string, bool) {
	s, ok := body[key].(string)
	return s, ok
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
