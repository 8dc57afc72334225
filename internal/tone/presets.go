package tone

import "strings"

var cannedResponses = map[string][]string{
	"sad": {
		"I'm really sorry you're going through this. I'm here with you.",
		"That sounds heavy. Take your time, I'm listening.",
		"It's okay to feel this way. Want to talk about what's on your mind?",
	},
	"excited": {
		"Yesss, that's amazing! Tell me everything!",
		"Okay this is huge, I love this for you!",
		"That's so exciting! How are you feeling about it?",
	},
	"angry": {
		"That sounds really frustrating. Your feelings make sense.",
		"I hear you. Want to vent it all out? I'm here.",
		"That would get to me too. What happened?",
	},
	"happy": {
		"Love that for you! What made today so good?",
		"That's wonderful to hear. Soak it in!",
		"Your good mood is contagious. Tell me more!",
	},
	"default": {
		"I'm here for you. Tell me more about what's going on.",
		"Thanks for sharing that with me. How are you feeling right now?",
		"I'm listening. What's on your mind?",
	},
}

// Generate picks a canned reply for emotion. It is the fallback when the
// language model is unavailable.
func (e *Engine) Generate(emotion string) string {
	list, ok := cannedResponses[strings.ToLower(strings.TrimSpace(emotion))]
	if !ok {
		list = cannedResponses["default"]
	}
	return list[e.rnd.IntN(len(list))]
}

const styleDirective = `TONE & STYLE
- Match the user's energy. If they write casually, you may write casually too.
- Allowed slang, only after the user has used slang first: fr, ngl, lowkey, highkey, no cap, bet, vibes, valid, bestie, fire, slay.
- Keep slang light. At most one or two slang terms per reply; never stack them.
- Emojis are optional. Use at most one per reply and only when the user uses them.
- Never force slang during sad/serious emotions unless user uses it first. When the user is sad, hurt, anxious, angry or depressed, answer in plain, warm language.
- Clarity and kindness always come before style.`

// StyleDirective is the tone policy for inclusion in a system prompt.
func StyleDirective() string {
	return styleDirective
}
