// Package sanitize strips injection-bearing markup from inbound request data.
//
// HTML removal is regex based and therefore approximate: malformed or nested
// markup is not parsed, only pattern-matched. Output is still guaranteed to
// hold no NUL byte, no <script> block, no <...> tag, and at most MaxLength
// code points.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxLength is the cap, in code points, applied to every string leaf.
const MaxLength = 10000

// maxDepth bounds recursion over nested bodies.
const maxDepth = 64

var ErrTooDeep = errors.New("input nested too deeply")

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
)

// String applies the sanitization rule to one string. Script blocks go
// before the generic tag pass so their bodies never survive as text.
func String(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")
	s = scriptBlock.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "")
	return truncate(s, MaxLength)
}

func truncate(s string, n int) string {
	if len(s) <= n || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Value sanitizes a decoded JSON value, descending into slices and maps.
// Map keys are sanitized too; when two keys collapse onto the same cleaned
// key the lexicographically last original key wins.
func Value(v any) (any, error) {
	return value(v, 0)
}

// Map sanitizes a decoded JSON object.
func Map(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out, err := mapValue(m, 0)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func value(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return String(t), nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			clean, err := value(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	case map[string]any:
		return mapValue(t, depth)
	default:
		return v, nil
	}
}

func mapValue(m map[string]any, depth int) (map[string]any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrTooDeep, depth)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		clean, err := value(m[k], depth+1)
		if err != nil {
			return nil, err
		}
		out[String(k)] = clean
	}
	return out, nil
}
