// Package navigation is the client's view-routing collaborator.
package navigation

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// State travels with a navigation.
type State struct {
	From   string // Location to resume after signing in
	Reason string // Why the user was sent here, shown by the target view
}

type Navigator interface {
	Navigate(path string, state State)
}

// Func adapts a function to Navigator.
type Func func(path string, state State)

func (f Func) Navigate(path string, state State) {
	f(path, state)
}

// Entry is one recorded navigation.
type Entry struct {
	Path  string
	State State
}

// History records navigations in order. It is the Navigator used by the CLI,
// where the "current view" is simply the last entry.
type History struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Navigator = (*History)(nil)

func NewHistory() *History {
	return &History{}
}

func (h *History) Navigate(path string, state State) {
	h.mu.Lock()
	h.entries = append(h.entries, Entry{Path: path, State: state})
	h.mu.Unlock()

	log.Debug().Str("path", path).Str("from", state.From).Str("reason", state.Reason).Msg("navigate")
}

// Current returns the last entry, and false when nothing was navigated to.
func (h *History) Current() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}
