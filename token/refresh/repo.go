package refresh

import (
	"time"
)

// StoredRefreshToken is the server-side record behind the opaque refresh
// cookie handed to clients.
type StoredRefreshToken struct {
	Token  string    // The random token string (sent to the client as a cookie)
	UserID string    // Owner of the session
	Iat    time.Time // Issued at time
}

// Repo stores refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID string) (*StoredRefreshToken, error)
}
