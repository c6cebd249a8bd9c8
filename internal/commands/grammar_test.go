package commands

import (
	"strings"
	"testing"

	"github.com/Vovarama1992/voice_mail/internal/events"
	"github.com/Vovarama1992/voice_mail/internal/ports"
)

func TestResolve(t *testing.T) {
	id := 3
	tests := []struct {
		name   string
		cmd    ports.Command
		kind   Kind
		target string
	}{
		{"inbox", ports.Command{Command: ports.CmdNavigateInbox}, KindNavigate, "/inbox"},
		{"compose", ports.Command{Command: ports.CmdNavigateCompose}, KindNavigate, "/compose"},
		{"archive_action", ports.Command{Command: ports.CmdArchive, EmailID: &id}, KindAction, ""},
		{"search", ports.Command{Command: ports.CmdSearchEmails, Query: "x"}, KindAction, ""},
		{"unknown", ports.Command{Command: ports.CmdUnknown, Transcript: "hm"}, KindUnknown, ""},
		{"outside_grammar", ports.Command{Command: "action_launch_rocket"}, KindUnknown, ""},
		{"empty", ports.Command{}, KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.cmd)
			if got.Kind != tt.kind || got.Target != tt.target {
				t.Errorf("Resolve = %+v", got)
			}
			if got.Kind == KindAction && got.Params.EmailID != tt.cmd.EmailID {
				t.Error("params must be passed through untouched")
			}
		})
	}
}

// Every command in the grammar has a route: navigation, the dispatcher's
// own search, a page contract, or the unknown branch.
func TestEveryCommandIsRouted(t *testing.T) {
	bus := events.NewBus(nil, events.DefaultContracts()...)
	for _, c := range ports.Commands {
		res := Resolve(ports.Command{Command: c})
		switch {
		case res.Kind == KindNavigate:
			if !strings.HasPrefix(res.Target, "/") || res.Ack == "" {
				t.Errorf("%s: bad destination %+v", c, res)
			}
		case c == ports.CmdSearchEmails, c == ports.CmdUnknown:
		default:
			if _, ok := bus.Contract(c); !ok {
				t.Errorf("%s has no page contract", c)
			}
		}
	}
}

func TestIsCompose(t *testing.T) {
	for path, want := range map[string]bool{
		"/compose":          true,
		"/compose/":         true,
		"/compose?to=a@b.c": true,
		"/compose/draft/7":  true,
		"/composer":         false,
		"/inbox":            false,
		"":                  false,
	} {
		if got := IsCompose(path); got != want {
			t.Errorf("IsCompose(%q) = %v", path, got)
		}
	}
}

func TestSearchPath(t *testing.T) {
	if got := SearchPath("  q3 budget & plan "); got != "/search?q=q3+budget+%26+plan" {
		t.Errorf("SearchPath = %q", got)
	}
}
