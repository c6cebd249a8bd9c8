package dictation

import "testing"

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john@example.com", "john@example.com"},
		{"John Smith at Example dot com", "johnsmith@example.com"},
		{" ann@mail.org. ", "ann@mail.org"},
		{"a at b dot io, c at d dot io", "a@b.io, c@d.io"},
		{"matt@atlas.com", "matt@atlas.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeRecipient(tt.in); got != tt.want {
			t.Errorf("NormalizeRecipient(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"quarterly report", "Quarterly Report"},
		{"lunch\non   friday.", "Lunch On Friday"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSubject(tt.in); got != tt.want {
			t.Errorf("NormalizeSubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAppendBody(t *testing.T) {
	body := AppendBody("", "Hi Bob.")
	body = AppendBody(body, "  See you Friday. ")
	body = AppendBody(body, "")

	if want := "Hi Bob.\n\nSee you Friday."; body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
		ok   bool
	}{
		{"to", FieldRecipient, true},
		{"Subject", FieldSubject, true},
		{"message", FieldBody, true},
		{"done", "", false},
		{"cc", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseField(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseField(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestFieldContext(t *testing.T) {
	if FieldRecipient.Context() != "to" || FieldSubject.Context() != "subject" || FieldBody.Context() != "body" {
		t.Error("context tags do not match the transcription service")
	}
}
