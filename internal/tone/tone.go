package tone

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/twingenie/twingenie/internal/platform/telemetry"
)

// Random is the source behind every probabilistic rewrite. *rand.Rand from
// math/rand/v2 satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// Intensity values accepted by Convert.
const (
	IntensityHigh   = "high"
	IntensityMedium = "medium"
)

// Engine applies tone rewrites. It holds no mutable state and is safe for
// concurrent use as long as its Random is.
type Engine struct {
	rnd Random
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom replaces the default process-wide random source.
func WithRandom(r Random) Option {
	return func(e *Engine) {
		if r != nil {
			e.rnd = r
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{rnd: globalRandom{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FlairContext is what AddFlair knows about the user's side of the turn.
type FlairContext struct {
	UserMessage string
	Emotion     string
}

type substitution struct {
	re   *regexp.Regexp
	with string
}

func phrase(p, with string) substitution {
	return substitution{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p)), with: with}
}

func word(w, with string) substitution {
	return substitution{re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`), with: with}
}

func (s substitution) apply(text string) string {
	return s.re.ReplaceAllLiteralString(text, s.with)
}

var mirrorPhrases = []substitution{
	phrase("I understand", "I feel you"),
	phrase("honestly", "ngl"),
}

type flairEntry struct {
	re           *regexp.Regexp
	alternatives []string
}

// flairWords is ordered so a seeded Random yields a stable result.
var flairWords = func() []flairEntry {
	raw := []struct {
		word string
		alts []string
	}{
		{"really", []string{"lowkey", "fr", "ngl"}},
		{"honestly", []string{"ngl"}},
		{"very", []string{"mad", "hella"}},
		{"amazing", []string{"fire"}},
		{"great", []string{"fire", "valid"}},
		{"cool", []string{"valid"}},
		{"understand", []string{"I feel you"}},
	}
	entries := make([]flairEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, flairEntry{
			re:           regexp.MustCompile(`(?i)\b` + r.word + `\b`),
			alternatives: r.alts,
		})
	}
	return entries
}()

var (
	highConvert = []substitution{
		word("really", "lowkey"),
		word("honestly", "ngl"),
		word("amazing", "fire"),
		word("very", "mad"),
	}
	convertHonestly = word("honestly", "ngl")
	convertReally   = word("really", "lowkey")
)

// mediumReallySkip is the draw at or below which medium intensity leaves
// "really" alone.
const mediumReallySkip = 0.6

// Mirror softens aiMessage toward the user's register. It only acts when
// the user's own message reads as slang.
func (e *Engine) Mirror(userMessage, aiMessage string) string {
	if aiMessage == "" {
		return aiMessage
	}
	det := Detect(userMessage)
	if !det.IsSlangStyle {
		return aiMessage
	}

	out := aiMessage
	for _, s := range mirrorPhrases {
		out = s.apply(out)
	}
	if det.Has("fr") && !strings.Contains(strings.ToLower(out), "fr") {
		out += " fr"
	}
	return counted("mirror", aiMessage, out)
}

// AddFlair swaps safe words in reply for slang alternatives, each word with
// even odds. Nothing changes unless the user wrote in slang, and nothing
// changes while the user's emotion is sensitive.
func (e *Engine) AddFlair(reply string, fc FlairContext) string {
	if reply == "" || IsSensitive(fc.Emotion) || !Detect(fc.UserMessage).IsSlangStyle {
		return reply
	}

	out := reply
	for _, fw := range flairWords {
		if !fw.re.MatchString(out) {
			continue
		}
		if e.rnd.Float64() <= 0.5 {
			continue
		}
		alt := fw.alternatives[e.rnd.IntN(len(fw.alternatives))]
		out = fw.re.ReplaceAllLiteralString(out, alt)
	}
	return counted("flair", reply, out)
}

// Convert rewrites text at the given intensity. "high" is deterministic;
// "medium" always swaps honestly and sometimes swaps really. Unknown
// intensities return text unchanged.
func (e *Engine) Convert(text, intensity string) string {
	if text == "" {
		return text
	}

	out := text
	switch intensity {
	case IntensityHigh:
		for _, s := range highConvert {
			out = s.apply(out)
		}
	case IntensityMedium:
		out = convertHonestly.apply(out)
		if e.rnd.Float64() > mediumReallySkip {
			out = convertReally.apply(out)
		}
	default:
		return text
	}
	return counted("convert", text, out)
}

func counted(kind, before, after string) string {
	if before != after {
		telemetry.ToneRewrites.WithLabelValues(kind).Inc()
	}
	return after
}
