package sessions

import (
	"github.com/jrsteele09/go-clinic-client/users"
)

// Snapshot is a consistent, copied view of the session at one moment.
type Snapshot struct {
	User        *users.User // Signed-in user, nil when signed out
	AccessToken string      // Bearer credential, "" when signed out
	Loading     bool        // True until the startup rehydration has finished
	Version     uint64      // Incremented on every change; higher is newer
}

// IsAuthenticated is true iff both the user and the token are present.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Event is what a session mutation did, for the orchestration layer to act on.
type Event int

const (
	EventNone Event = iota
	EventSignedIn
	EventSignedOut
	EventExpired
)

func (e Event) String() string {
	switch e {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventExpired:
		return "expired"
	default:
		return "none"
	}
}

// Outcome is returned by the Service instead of performing navigation itself.
type Outcome struct {
	Event       Event
	User        *users.User
	AccessToken string // For EventSignedOut, the token of the session that ended
}
