package home

import (
	"sort"

	"github.com/sarchlab/mesil1/mem/coherence"
)

// entry is the directory record of one block.
type entry struct {
	addr    uint64
	owner   string
	sharers map[string]bool

	trans   *transaction
	waiting []*coherence.Msg
}

// transaction is a request waiting for the snoops it caused.
type transaction struct {
	req      *coherence.Msg
	awaiting map[string]bool

	// downgrade is set when the owner is asked to keep a shared copy.
	downgrade bool
}

func (e *entry) removeHolder(name string) {
	if e.owner == name {
		e.owner = ""
	}

	delete(e.sharers, name)
}

func (e *entry) noSharerBut(name string) bool {
	for s := range e.sharers {
		if s != name {
			return false
		}
	}

	return true
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
