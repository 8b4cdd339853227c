package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-clinic-client/users"
)

// ErrCorruptRecord is returned when the persisted user cannot be decoded.
var ErrCorruptRecord = errors.New("persisted session record is corrupt")

// Record is the persisted mirror of a session.
type Record struct {
	AccessToken string
	User        *users.User
}

// LoadRecord returns nil when either half of the record is missing.
func LoadRecord(ctx context.Context, kv KV) (*Record, error) {
	token, ok, err := kv.Get(ctx, KeyAccessToken)
	if err != nil || !ok || token == "" {
		return nil, err
	}
	raw, ok, err := kv.Get(ctx, KeyUser)
	if err != nil || !ok || raw == "" {
		return nil, err
	}

	var user users.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user has no id", ErrCorruptRecord)
	}
	return &Record{AccessToken: token, User: &user}, nil
}

// SaveRecord writes the user first so that a token is never persisted without
// its owner.
func SaveRecord(ctx context.Context, kv KV, rec Record) error {
	data, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := kv.Set(ctx, KeyUser, string(data)); err != nil {
		return err
	}
	return kv.Set(ctx, KeyAccessToken, rec.AccessToken)
}

func SaveAccessToken(ctx context.Context, kv KV, token string) error {
	return kv.Set(ctx, KeyAccessToken, token)
}

// ClearRecord removes the token first, then the user, attempting both.
func ClearRecord(ctx context.Context, kv KV) error {
	return errors.Join(
		kv.Remove(ctx, KeyAccessToken),
		kv.Remove(ctx, KeyUser),
	)
}
