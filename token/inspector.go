package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	"github.com/jrsteele09/go-clinic-client/internal/utils"
)

// Claims is the unverified view of an access token payload.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	ExpiresAt time.Time `json:"exp"`
}

// Inspector reads access token payloads without verifying signatures. It is
// only used to decide locally whether a token is worth presenting.
type Inspector struct {
	parser  *jwt.Parser
	nowFunc func() time.Time
}

type InspectorOption func(*Inspector)

// WithNowFunc overrides the clock used for expiry checks.
func WithNowFunc(now func() time.Time) InspectorOption {
	return func(i *Inspector) {
		i.nowFunc = now
	}
}

func NewInspector(options ...InspectorOption) *Inspector {
	i := &Inspector{
		parser:  jwt.NewParser(jwt.WithPaddingAllowed()),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

var defaultInspector = NewInspector()

// IsExpired reports whether raw should be treated as expired, using the wall
// clock.
func IsExpired(raw string) bool {
	return defaultInspector.IsExpired(raw)
}

// ReadClaims decodes raw with the shared inspector.
func ReadClaims(raw string) (*Claims, error) {
	return defaultInspector.Claims(raw)
}

// IsExpired returns true when the token is malformed, its payload cannot be
// decoded, it has no numeric exp claim, or exp*1000 <= now in milliseconds.
func (i *Inspector) IsExpired(raw string) bool {
	claims, err := i.payload(raw)
	if err != nil {
		return true
	}
	exp, ok := expSeconds(claims)
	if !ok {
		return true
	}
	return exp*1000 <= float64(i.nowFunc().UnixMilli())
}

// expSeconds reads exp without jwt.NumericDate, which truncates to
// jwt.TimePrecision and would floor a fractional exp.
func expSeconds(claims jwt.MapClaims) (float64, bool) {
	switch exp := claims["exp"].(type) {
	case float64:
		return exp, true
	case json.Number:
		f, err := exp.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Claims decodes the subject, email, roles and expiry of raw.
func (i *Inspector) Claims(raw string) (*Claims, error) {
	claims, err := i.payload(raw)
	if err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, clinicerrors.ErrMissingExpiry
	}

	c := &Claims{ExpiresAt: exp.Time}
	c.Subject, _ = claims.GetSubject()
	c.Email, _ = claims["email"].(string)
	if roles, ok := claims["roles"].([]any); ok {
		c.Roles = utils.ToStringSlice(roles)
	}
	return c, nil
}

// payload decodes only the middle segment. The header and signature are not
// inspected, so a token with an unparseable header is still judged on exp.
func (i *Inspector) payload(raw string) (jwt.MapClaims, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, clinicerrors.ErrMalformedToken
	}

	segment := strings.NewReplacer("+", "-", "/", "_").Replace(parts[1])
	data, err := i.parser.DecodeSegment(segment)
	if err != nil {
		return nil, clinicerrors.Wrapf(clinicerrors.ErrMalformedToken, "decode payload: %v", err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, clinicerrors.Wrapf(clinicerrors.ErrMalformedToken, "unmarshal payload: %v", err)
	}
	return claims, nil
}
