package events

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vovarama1992/voice_mail/internal/ports"
)

type contractsFile struct {
	Contracts []Contract `yaml:"contracts"`
}

// LoadContracts reads contract overrides from a YAML file:
//
//	contracts:
//	  - action: action_read_email
//	    fields: [emailId]
//	    pages: [/inbox, /email]
//	    description: read the email aloud
//
// Only actions the classifier can produce are accepted.
func LoadContracts(path string) ([]Contract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contracts: %w", err)
	}
	defer f.Close()

	var doc contractsFile
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode contracts %s: %w", path, err)
	}

	for i, c := range doc.Contracts {
		c.Action = strings.TrimSpace(c.Action)
		if !strings.HasPrefix(c.Action, "action_") || !ports.KnownCommand(c.Action) || c.Action == ports.CmdSearchEmails {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
		}
		doc.Contracts[i] = c
	}
	return doc.Contracts, nil
}

// WithOverrides returns the default contracts replaced or extended by
// overrides, keyed by action.
func WithOverrides(overrides []Contract) []Contract {
	out := DefaultContracts()
	idx := make(map[string]int, len(out))
	for i, c := range out {
		idx[c.Action] = i
	}
	for _, c := range overrides {
		if i, ok := idx[c.Action]; ok {
			out[i] = c
			continue
		}
		idx[c.Action] = len(out)
		out = append(out, c)
	}
	return out
}
