package dictation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Vovarama1992/voice_mail/internal/ports"
)

// Field is the dictation cursor.
type Field string

const (
	FieldIdle      Field = "idle"
	FieldRecipient Field = "recipient"
	FieldSubject   Field = "subject"
	FieldBody      Field = "body"
	FieldDone      Field = "done"
)

// Capturing reports whether the field records audio.
func (f Field) Capturing() bool {
	switch f {
	case FieldRecipient, FieldSubject, FieldBody:
		return true
	}
	return false
}

func (f Field) next() Field {
	switch f {
	case FieldRecipient:
		return FieldSubject
	case FieldSubject:
		return FieldBody
	case FieldBody:
		return FieldDone
	}
	return f
}

// Context is the tag sent to the transcription service.
func (f Field) Context() ports.DictationContext {
	switch f {
	case FieldRecipient:
		return ports.ContextTo
	case FieldSubject:
		return ports.ContextSubject
	}
	return ports.ContextBody
}

// ParseField accepts both cursor names and the spoken/classifier names
// ("to", "message").
func ParseField(s string) (Field, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recipient", "to", "address":
		return FieldRecipient, true
	case "subject", "title":
		return FieldSubject, true
	case "body", "message", "text":
		return FieldBody, true
	}
	return "", false
}

// Values are the compose fields as dictated so far.
type Values struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var (
	spokenAt  = regexp.MustCompile(`(?i)\s+at\s+`)
	spokenDot = regexp.MustCompile(`(?i)\s+dot\s+`)
	spaces    = regexp.MustCompile(`\s+`)
)

// NormalizeRecipient lowercases and strips spaces. The service already
// substitutes "at" and "dot"; this catches replies that slipped through.
func NormalizeRecipient(s string) string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		p = spokenAt.ReplaceAllString(p, "@")
		p = spokenDot.ReplaceAllString(p, ".")
		p = spaces.ReplaceAllString(p, "")
		p = strings.Trim(strings.ToLower(p), ".")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// NormalizeSubject folds to one title-cased line.
func NormalizeSubject(s string) string {
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.TrimRight(s, ".")
	// casers keep state, one per call
	return cases.Title(language.English).String(s)
}

// AppendBody adds text as a new paragraph.
func AppendBody(body, text string) string {
	text = strings.TrimSpace(text)
	body = strings.TrimRight(body, " \n")
	switch {
	case text == "":
		return body
	case body == "":
		return text
	}
	return body + "\n\n" + text
}

func (v *Values) apply(f Field, text string) {
	switch f {
	case FieldRecipient:
		v.To = NormalizeRecipient(text)
	case FieldSubject:
		v.Subject = NormalizeSubject(text)
	case FieldBody:
		v.Body = AppendBody(v.Body, text)
	}
}
