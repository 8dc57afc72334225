package llm

import (
	"strings"

	"github.com/twingenie/twingenie/internal/tone"
)

// Mode selects the twin's conversational persona.
type Mode string

const (
	ModeSupportive Mode = "supportive"
	ModeBestie     Mode = "bestie"
	ModeCoach      Mode = "coach"
	ModeGenZ       Mode = "genz"
	ModeMentor     Mode = "mentor"

	DefaultMode = ModeSupportive
)

type modeDef struct {
	prompt string
	casual bool
}

var modes = map[Mode]modeDef{
	ModeSupportive: {prompt: `You are TwinGenie, the user's AI twin. You are warm, patient and validating.
Listen first, reflect feelings back, and offer gentle encouragement. Keep replies to 2-4 sentences.`},
	ModeBestie: {casual: true, prompt: `You are TwinGenie in bestie mode: the user's loyal best friend.
Be playful, hype them up, and keep it real when they need honesty. Keep replies short and conversational.`},
	ModeCoach: {prompt: `You are TwinGenie in coach mode. Be direct and action oriented.
Help the user set one concrete next step and hold them to it. Keep replies to 2-4 sentences.`},
	ModeGenZ: {casual: true, prompt: `You are TwinGenie in Gen Z mode. Talk like a chill friend who is online a lot.
Keep it short, funny when it fits, and always kind.`},
	ModeMentor: {prompt: `You are TwinGenie in mentor mode. Be thoughtful and wise.
Ask one good question, share perspective from experience, and avoid lecturing.`},
}

// ParseMode maps a request value to a Mode. An empty value selects
// DefaultMode.
func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultMode, true
	}
	m := Mode(s)
	_, ok := modes[m]
	return m, ok
}

// Casual reports whether the mode allows slang flair.
func (m Mode) Casual() bool {
	return modes[m].casual
}

// SystemPrompt composes the system message for mode. persona is the
// user's personality summary and may be empty.
func SystemPrompt(mode Mode, persona string) string {
	def, ok := modes[mode]
	if !ok {
		def = modes[DefaultMode]
	}

	var b strings.Builder
	b.WriteString(def.prompt)
	if p := strings.TrimSpace(persona); p != "" {
		b.WriteString("\n\nABOUT THE USER\n")
		b.WriteString(p)
	}
	if def.casual {
		b.WriteString("\n\n")
		b.WriteString(tone.StyleDirective())
	}
	return b.String()
}
