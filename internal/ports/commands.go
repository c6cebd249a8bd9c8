package ports

import "slices"

// Command grammar shared by the classifier prompt and the dispatcher
// routing table. Adding a name here means updating both.
const (
	CmdNavigateInbox    = "navigate_inbox"
	CmdNavigateSent     = "navigate_sent"
	CmdNavigateDrafts   = "navigate_drafts"
	CmdNavigateArchive  = "navigate_archive"
	CmdNavigateTrash    = "navigate_trash"
	CmdNavigateCompose  = "navigate_compose"
	CmdNavigateContacts = "navigate_contacts"
	CmdNavigateSettings = "navigate_settings"

	CmdSearchEmails  = "action_search_emails"
	CmdReadEmail     = "action_read_email"
	CmdOpenEmail     = "action_open_email"
	CmdArchive       = "action_archive"
	CmdDelete        = "action_delete"
	CmdReply         = "action_reply"
	CmdForward       = "action_forward"
	CmdReadAloud     = "action_read_aloud"
	CmdStopReading   = "action_stop_reading"
	CmdNextPage      = "action_next_page"
	CmdPreviousPage  = "action_previous_page"
	CmdFilter        = "action_filter_category"
	CmdAddContact    = "action_add_contact"
	CmdEmailContact  = "action_email_contact"
	CmdDeleteContact = "action_delete_contact"
	CmdGoBack        = "action_go_back"

	CmdUnknown = "unknown"
)

// Commands lists every recognized command in grammar order.
var Commands = []string{
	CmdNavigateInbox,
	CmdNavigateSent,
	CmdNavigateDrafts,
	CmdNavigateArchive,
	CmdNavigateTrash,
	CmdNavigateCompose,
	CmdNavigateContacts,
	CmdNavigateSettings,
	CmdSearchEmails,
	CmdReadEmail,
	CmdOpenEmail,
	CmdArchive,
	CmdDelete,
	CmdReply,
	CmdForward,
	CmdReadAloud,
	CmdStopReading,
	CmdNextPage,
	CmdPreviousPage,
	CmdFilter,
	CmdAddContact,
	CmdEmailContact,
	CmdDeleteContact,
	CmdGoBack,
	CmdUnknown,
}

func KnownCommand(name string) bool {
	return slices.Contains(Commands, name)
}

// Command is the classifier output for one utterance. EmailID is 1-based
// and passed through untouched; bounds belong to whoever consumes it.
type Command struct {
	Command    string `json:"command"`
	Transcript string `json:"transcript,omitempty"`
	EmailID    *int   `json:"emailId,omitempty"`
	Name       string `json:"name,omitempty"`
	Query      string `json:"query,omitempty"`
	Category   string `json:"category,omitempty"`
}
