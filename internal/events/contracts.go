package events

import "github.com/Vovarama1992/voice_mail/internal/ports"

// Contract names an action and the payload fields its subscribers read.
type Contract struct {
	Action      string   `json:"action" yaml:"action"`
	Fields      []string `json:"fields,omitempty" yaml:"fields"`
	Pages       []string `json:"pages,omitempty" yaml:"pages"`
	Description string   `json:"description" yaml:"description"`
}

var mailLists = []string{"/inbox", "/sent", "/drafts", "/archive", "/trash", "/search"}

// DefaultContracts covers every action the dispatcher forwards to pages.
// Search is handled by the dispatcher and has no contract.
func DefaultContracts() []Contract {
	return []Contract{
		{Action: ports.CmdReadEmail, Fields: []string{"emailId"}, Pages: mailLists,
			Description: "read the email at the 1-based list position aloud"},
		{Action: ports.CmdOpenEmail, Fields: []string{"emailId"}, Pages: mailLists,
			Description: "open the email at the 1-based list position"},
		{Action: ports.CmdArchive, Fields: []string{"emailId"}, Pages: append(mailLists, "/email"),
			Description: "archive the open email, or the one at emailId"},
		{Action: ports.CmdDelete, Fields: []string{"emailId"}, Pages: append(mailLists, "/email"),
			Description: "move the open email, or the one at emailId, to trash"},
		{Action: ports.CmdReply, Pages: []string{"/email"},
			Description: "start a reply to the open email"},
		{Action: ports.CmdForward, Pages: []string{"/email"},
			Description: "start forwarding the open email"},
		{Action: ports.CmdReadAloud, Pages: append(mailLists, "/email"),
			Description: "read the current page or email aloud"},
		{Action: ports.CmdStopReading,
			Description: "stop any reading in progress"},
		{Action: ports.CmdNextPage, Pages: mailLists,
			Description: "show the next page of the list"},
		{Action: ports.CmdPreviousPage, Pages: mailLists,
			Description: "show the previous page of the list"},
		{Action: ports.CmdFilter, Fields: []string{"category"}, Pages: mailLists,
			Description: "filter the list by category"},
		{Action: ports.CmdAddContact, Fields: []string{"name"}, Pages: []string{"/contacts"},
			Description: "add a contact with the spoken name"},
		{Action: ports.CmdEmailContact, Fields: []string{"name"}, Pages: []string{"/contacts"},
			Description: "compose an email to the named contact"},
		{Action: ports.CmdDeleteContact, Fields: []string{"name"}, Pages: []string{"/contacts"},
			Description: "delete the named contact"},
		{Action: ports.CmdGoBack,
			Description: "return to the previous view"},
	}
}
