package commands

import (
	"net/url"
	"strings"

	"github.com/Vovarama1992/voice_mail/internal/ports"
)

type Kind string

const (
	KindNavigate Kind = "navigate"
	KindAction   Kind = "action"
	KindUnknown  Kind = "unknown"
)

// Result is one classified utterance resolved against the routing table.
type Result struct {
	Kind       Kind
	Target     string        // navigate
	Ack        string        // navigate, spoken before navigating
	Name       string        // action
	Params     ports.Command // action, passed through untouched
	Transcript string        // unknown
}

type destination struct {
	path string
	ack  string
}

// navigation is the routing half of the command grammar; ports.Commands
// is the classifier half.
var navigation = map[string]destination{
	ports.CmdNavigateInbox:    {"/inbox", "Opening inbox"},
	ports.CmdNavigateSent:     {"/sent", "Opening sent mail"},
	ports.CmdNavigateDrafts:   {"/drafts", "Opening drafts"},
	ports.CmdNavigateArchive:  {"/archive", "Opening archive"},
	ports.CmdNavigateTrash:    {"/trash", "Opening trash"},
	ports.CmdNavigateCompose:  {ComposePath, "Opening compose"},
	ports.CmdNavigateContacts: {"/contacts", "Opening contacts"},
	ports.CmdNavigateSettings: {"/settings", "Opening settings"},
}

// Resolve maps the classifier output to a routing decision.
func Resolve(cmd ports.Command) Result {
	if dest, ok := navigation[cmd.Command]; ok {
		return Result{Kind: KindNavigate, Target: dest.path, Ack: dest.ack}
	}
	if cmd.Command != ports.CmdUnknown && strings.HasPrefix(cmd.Command, "action_") && ports.KnownCommand(cmd.Command) {
		return Result{Kind: KindAction, Name: cmd.Command, Params: cmd}
	}
	return Result{Kind: KindUnknown, Transcript: cmd.Transcript}
}

// SearchPath is the results view for a spoken query.
func SearchPath(query string) string {
	return "/search?q=" + url.QueryEscape(strings.TrimSpace(query))
}

// IsCompose reports whether path is the composition screen.
func IsCompose(path string) bool {
	p, _, _ := strings.Cut(path, "?")
	p = strings.TrimSuffix(p, "/")
	return p == ComposePath || strings.HasPrefix(p, ComposePath+"/")
}
