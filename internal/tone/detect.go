// Package tone mirrors a user's informal register in generated replies. It
// only ever adds slang the user signalled first, and it backs off entirely
// while the user is in a sensitive emotional state.
package tone

import "strings"

// keywords is scanned in order; Detection.Indicators follows this order.
var keywords = []string{
	"fr", "ngl", "lowkey", "highkey", "bro", "bestie", "slay", "bussin",
	"fire", "mid", "cap", "no cap", "bet", "vibes", "giving", "cringe",
	"ick", "valid", "deadass", "periodt", "rizz", "tbh", "iykyk",
}

// confidenceScale is the indicator count at which confidence saturates.
const confidenceScale = 5

// Detection describes how strongly a message reads as slang.
type Detection struct {
	IsSlangStyle bool     `json:"is_slang_style"`
	Confidence   float64  `json:"confidence"`
	Indicators   []string `json:"indicators"`
}

// Detect scans message for slang keywords. Matching is plain substring
// containment on the lower-cased message, so "fr" also hits inside "from".
func Detect(message string) Detection {
	lowered := strings.ToLower(message)
	indicators := []string{}
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			indicators = append(indicators, kw)
		}
	}
	return Detection{
		IsSlangStyle: len(indicators) > 0,
		Confidence:   min(float64(len(indicators))/confidenceScale, 1),
		Indicators:   indicators,
	}
}

// Has reports whether term was among the detected indicators.
func (d Detection) Has(term string) bool {
	for _, ind := range d.Indicators {
		if ind == term {
			return true
		}
	}
	return false
}

var sensitiveEmotions = map[string]bool{
	"sad": true, "hurt": true, "anxious": true, "angry": true, "depressed": true,
}

// IsSensitive reports whether emotion suppresses casual rewrites.
func IsSensitive(emotion string) bool {
	return sensitiveEmotions[strings.ToLower(strings.TrimSpace(emotion))]
}
