package validate

import (
	"log/slog"
	"net/http"
	"strings"
)

const (
	MaxMessageLength  = 10000
	MinPasswordLength = 6
	MaxPasswordLength = 100
	MaxAudioBytes     = 10 << 20
)

// KnownMoods is the built-in mood vocabulary. Anything else is accepted as
// a custom mood.
var KnownMoods = map[string]bool{
	"great": true, "good": true, "okay": true, "bad": true, "terrible": true,
	"happy": true, "sad": true, "anxious": true, "calm": true, "angry": true,
	"excited": true,
}

// Plans is the set of subscription tiers a caller may select.
var Plans = map[string]bool{
	"free": true, "pro": true, "premium": true, "lifetime": true,
}

// CheckChatMessage validates the body of a chat request.
func CheckChatMessage(body map[string]any) error {
	raw := body["message"]
	if !truthy(raw) {
		return badRequest("Message is required")
	}
	msg, ok := raw.(string)
	if !ok {
		return badRequest("Message must be a string")
	}
	if runeLen(msg) > MaxMessageLength {
		return badRequest("Message too long (max 10000 characters)")
	}
	if strings.TrimSpace(msg) == "" {
		return badRequest("Message cannot be empty")
	}
	return nil
}

// CheckAuthInput validates signup and login credentials.
func CheckAuthInput(body map[string]any) error {
	if !truthy(body["email"]) || !truthy(body["password"]) {
		return badRequest("Email and password are required")
	}
	email, _ := stringField(body, "email")
	if !IsValidEmail(email) {
		return badRequest("Invalid email format")
	}
	password, ok := stringField(body, "password")
	if !ok {
		return badRequest("Password must be a string")
	}
	n := runeLen(password)
	if n < MinPasswordLength {
		return badRequest("Password must be at least 6 characters")
	}
	if n > MaxPasswordLength {
		return badRequest("Password too long (max 100 characters)")
	}
	return nil
}

// CheckPersonalityAnswers validates a questionnaire submission.
func CheckPersonalityAnswers(body map[string]any) error {
	answers, ok := body["answers"].([]any)
	if !ok || len(answers) == 0 {
		return badRequest("Answers array is required")
	}
	for _, a := range answers {
		entry, ok := a.(map[string]any)
		if !ok || !truthy(entry["questionId"]) || !truthy(entry["answer"]) {
			return badRequest("Each answer must have questionId and answer")
		}
	}
	return nil
}

// CheckMood validates a mood entry. Moods outside KnownMoods are logged and
// accepted so the vocabulary can grow from real usage.
func CheckMood(body map[string]any) error {
	raw := body["mood"]
	if !truthy(raw) {
		return badRequest("Mood is required")
	}
	mood, ok := raw.(string)
	if !ok {
		return badRequest("Mood must be a string")
	}
	if !IsKnownMood(mood) {
		slog.Info("custom mood logged", "mood", mood)
	}
	return nil
}

// IsKnownMood reports whether mood is in the built-in vocabulary.
func IsKnownMood(mood string) bool {
	return KnownMoods[lower(mood)]
}

// CheckSubscription validates a plan change. Unlike moods, plans are a
// closed set.
func CheckSubscription(body map[string]any) error {
	raw := body["plan"]
	if !truthy(raw) {
		return badRequest("Plan is required")
	}
	plan, ok := raw.(string)
	if !ok || !Plans[lower(plan)] {
		return badRequest("Invalid subscription plan")
	}
	return nil
}

// CheckVoice validates a voice upload. hasFile and fileSize describe the
// multipart "audio" part, if any; body carries form or JSON fields.
func CheckVoice(hasFile bool, fileSize int64, body map[string]any) error {
	if !hasFile && !truthy(body["audio"]) {
		return badRequest("Audio file or data is required")
	}
	if hasFile && fileSize > MaxAudioBytes {
		return badRequest("Audio file too large (max 10MB)")
	}
	return nil
}

func ChatMessage(next http.Handler) http.Handler {
	return bodyValidator("chat_message", CheckChatMessage)(next)
}

func AuthInput(next http.Handler) http.Handler {
	return bodyValidator("auth_input", CheckAuthInput)(next)
}

func PersonalityAnswers(next http.Handler) http.Handler {
	return bodyValidator("personality_answers", CheckPersonalityAnswers)(next)
}

func MoodInput(next http.Handler) http.Handler {
	return bodyValidator("mood_input", CheckMood)(next)
}

func SubscriptionInput(next http.Handler) http.Handler {
	return bodyValidator("subscription_input", CheckSubscription)(next)
}
