package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	"github.com/jrsteele09/go-clinic-client/internal/utils"
	"github.com/jrsteele09/go-clinic-client/users"
)

// ErrRevoked is returned by Verify for tokens invalidated by logout.
var ErrRevoked = errors.New("token revoked")

// Issuer mints and verifies the short-lived access tokens handed out by the
// development backend.
type Issuer struct {
	signer            Signer
	issuer            string
	accessTokenExpiry time.Duration
	revocations       *Revocations
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = expiry
	}
}

func WithIssuerNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = name
	}
}

func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:  signer,
		issuer:  "clinic",
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	if i.accessTokenExpiry == 0 {
		i.accessTokenExpiry = time.Minute
	}
	i.revocations = NewRevocations(i.nowFunc)
	return i
}

// AccessTokenExpiry is the lifetime given to new access tokens.
func (i *Issuer) AccessTokenExpiry() time.Duration {
	return i.accessTokenExpiry
}

func (i *Issuer) CreateAccessToken(user *users.User) (string, error) {
	now := i.nowFunc()
	claims := jwt.MapClaims{
		"iss":   i.issuer,                            // The issuer of the token
		"sub":   user.ID,                             // The user the token was issued to
		"email": user.Email,                          // Convenience claim for display
		"roles": user.RoleStrings(),                  // Roles at time of issue
		"iat":   now.Unix(),                          // Issued At
		"exp":   now.Add(i.accessTokenExpiry).Unix(), // Expiry
		"jti":   uuid.New().String(),                 // Unique token ID for revocation
	}
	return i.signer.Sign(claims)
}

// VerifiedToken is the subset of claims the backend authorises requests with.
type VerifiedToken struct {
	Subject   string
	Roles     []string
	JTI       string
	ExpiresAt time.Time
}

// Verify checks signature, expiry and revocation of raw.
func (i *Issuer) Verify(raw string) (*VerifiedToken, error) {
	parsed, err := jwt.ParseWithClaims(raw, jwt.MapClaims{}, i.signer.GetVerificationKey,
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, clinicerrors.ErrMalformedToken
	}

	exp, _ := claims.GetExpirationTime()
	sub, _ := claims.GetSubject()
	jti, _ := claims["jti"].(string)

	vt := &VerifiedToken{Subject: sub, JTI: jti}
	if exp != nil {
		vt.ExpiresAt = exp.Time
	}
	if roles, ok := claims["roles"].([]any); ok {
		vt.Roles = utils.ToStringSlice(roles)
	}

	if jti != "" && i.revocations.IsRevoked(jti) {
		return nil, ErrRevoked
	}
	return vt, nil
}

// Revoke invalidates a verified token until its natural expiry.
func (i *Issuer) Revoke(vt *VerifiedToken) {
	if vt == nil || vt.JTI == "" {
		return
	}
	i.revocations.Add(vt.JTI, vt.ExpiresAt)
}
