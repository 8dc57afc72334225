package validate

import (
	"errors"
	"mime"
	"net/http"
)

// multipartSlack leaves room for part headers and form fields on top of
// the audio payload itself.
const multipartSlack = 1 << 20

// MaxVoiceBodyBytes caps a voice request body in either encoding.
const MaxVoiceBodyBytes = MaxAudioBytes + multipartSlack

const multipartMemory = 4 << 20

// VoiceInput requires either a multipart "audio" file no larger than
// MaxAudioBytes or an "audio" body field. On success the parsed multipart
// form stays on the request for the handler.
func VoiceInput(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "multipart/form-data" {
			body, err := bodyOf(w, r, MaxVoiceBodyBytes)
			if err != nil {
				writeError(w, "voice_input", bodyReadError(err))
				return
			}
			if err := CheckVoice(false, 0, body); err != nil {
				writeError(w, "voice_input", err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxVoiceBodyBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			writeError(w, "voice_input", bodyReadError(err))
			return
		}

		var (
			hasFile bool
			size    int64
		)
		if files := r.MultipartForm.File["audio"]; len(files) > 0 {
			hasFile = true
			size = files[0].Size
		}
		fields := map[string]any{}
		if vals := r.MultipartForm.Value["audio"]; len(vals) > 0 {
			fields["audio"] = vals[0]
		}

		if err := CheckVoice(hasFile, size, fields); err != nil {
			writeError(w, "voice_input", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bodyReadError(err error) *Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return badRequest("Audio file too large (max 10MB)")
	}
	return badRequest("Invalid request data")
}
