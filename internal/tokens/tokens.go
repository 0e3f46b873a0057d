package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrWrongIssuer       = errors.New("token issuer mismatch")
	// ErrSigningFailure means the codec could not mint a token. It indicates
	// misconfiguration and is reported as an internal error.
	ErrSigningFailure = errors.New("token signing failure")
)

// Claims is the payload of tokens minted by this service. Subject carries the
// external subject identifier; UserID carries the internal identity id.
type Claims struct {
	Username string   `json:"username,omitempty"`
	Name     string   `json:"name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Picture  string   `json:"picture,omitempty"`
	UserID   string   `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// Pair is returned by sign-in and refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Codec mints and verifies HS256 bearer tokens.
type Codec struct {
	secret []byte
	issuer string
	zone   *time.Location
	now    func() time.Time
}

// NewCodec returns a codec signing with secret. Expirations are computed in
// zone; a nil zone means UTC. The zone never changes the encoded instant.
func NewCodec(secret, issuer string, zone *time.Location) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty signing secret", ErrSigningFailure)
	}
	if issuer == "" {
		return nil, fmt.Errorf("%w: empty issuer", ErrSigningFailure)
	}
	if zone == nil {
		zone = time.UTC
	}
	return &Codec{secret: []byte(secret), issuer: issuer, zone: zone, now: time.Now}, nil
}

// SetNow replaces the clock used for issuance and verification.
func (c *Codec) SetNow(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	c.now = fn
}

// Issuer returns the fixed issuer string embedded in every token.
func (c *Codec) Issuer() string { return c.issuer }

// Issue signs claims with an expiration ttl from now. Issuer, issued-at and
// expiration on the input are overwritten.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("%w: non-positive ttl %s", ErrSigningFailure, ttl)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrSigningFailure)
	}
	now := c.now().In(c.zone)
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiry(now, ttl))

	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := jt.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	return signed, nil
}

// expiry returns now+ttl rounded up to a whole second. exp is encoded with
// second precision and must never fall before now+ttl.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); !t.Equal(exp) {
		return t.Add(time.Second)
	}
	return exp
}

// Verify checks signature, issuer and expiration and returns the claims.
// Every failure is one of ErrTokenMalformed, ErrTokenBadSignature,
// ErrWrongIssuer or ErrTokenExpired.
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrWrongIssuer, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

// ClaimsFor builds the claims describing u.
func ClaimsFor(u *models.User) Claims {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return Claims{
		Username:         u.Username(),
		Name:             u.Name,
		Roles:            roles,
		Picture:          u.PictureURL,
		UserID:           u.ID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.Sub},
	}
}

// IssuePair mints an access and a refresh token for u from the same claims.
func (c *Codec) IssuePair(u *models.User, accessTTL, refreshTTL time.Duration) (*Pair, error) {
	claims := ClaimsFor(u)
	access, err := c.Issue(claims, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := c.Issue(claims, refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(accessTTL / time.Second)}, nil
}
