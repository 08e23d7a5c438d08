// Package token mints and verifies the signed access and refresh tokens that
// carry a user's identity. Access and refresh tokens are signed with distinct
// secrets and tagged with their kind in the sub claim, so a leaked refresh
// token cannot be replayed as an access token and vice versa.
package token

import (
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind tags a token's purpose. The tag is embedded in the sub claim on mint
// and checked against the verification context on every verify.
type Kind string

const (
	KindAccess  Kind = "ACCESS_TOKEN"
	KindRefresh Kind = "REFRESH_TOKEN"
)

// Sentinel errors for verification; callers must distinguish all three.
var (
	// ErrInvalidToken is returned when the signature or structure is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrKindMismatch is returned when the embedded kind does not match the
	// verification context, e.g. a refresh token presented as access.
	ErrKindMismatch = errors.New("token kind mismatch")
)

// ErrMissingSecret is returned by NewCodec when a signing secret is absent.
// This is a fatal configuration error, not a per-request fault.
var ErrMissingSecret = errors.New("token: signing secret must not be empty")

// Identity is the caller-supplied claim set embedded into minted tokens.
// Role is preserved verbatim; the codec attaches no meaning to it.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Payload is the verified content of a token.
type Payload struct {
	Kind      Kind
	UserID    string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is an atomically issued access/refresh token pair. ExpiresAt is the
// access token's expiry.
type Pair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Codec mints and verifies HS256 tokens. It is stateless and safe for
// concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	log           *slog.Logger
}

// NewCodec returns a Codec signing access and refresh tokens with the given
// secrets and expiry strings (<integer><unit>, unit m/h/d). Both secrets are
// mandatory. An unparseable expiry falls back to 15 minutes and is logged,
// since it masks a misconfiguration.
func NewCodec(accessSecret, refreshSecret, accessExpiry, refreshExpiry string, log *slog.Logger) (*Codec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if log == nil {
		log = slog.Default()
	}
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     ParseExpiry(accessExpiry, log),
		refreshTTL:    ParseExpiry(refreshExpiry, log),
		log:           log,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// Mint signs a token of the given kind carrying id. Returns the signed token
// and its expiry.
func (c *Codec) Mint(id Identity, kind Kind) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(c.ttl(kind))
	cl := claims{
		// The jti makes every mint unique. Sessions are keyed by the token
		// string, so two logins in the same second must not collide.
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   string(kind),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	signed, err := t.SignedString(c.secret(kind))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// MintPair mints an access and a refresh token for id. The pair is never
// partially issued: any mint failure discards both. ExpiresAt is the access
// token's expiry.
func (c *Codec) MintPair(id Identity) (*Pair, error) {
	access, expiresAt, err := c.Mint(id, KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := c.Mint(id, KindRefresh)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// Verify checks tokenString against the expected kind's secret and returns
// its payload. It fails with ErrTokenExpired past expiry, ErrKindMismatch
// when the token was minted as the other kind (including tokens signed with
// the other kind's secret), and ErrInvalidToken for anything else.
func (c *Codec) Verify(tokenString string, expected Kind) (*Payload, error) {
	cl, err := c.parse(tokenString, c.secret(expected))
	switch {
	case err == nil:
		if cl.Subject != string(expected) {
			return nil, ErrKindMismatch
		}
		return payloadFromClaims(cl, expected), nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	}

	// Signature failure under the expected secret: a token cross-used from
	// the other kind must surface as a kind mismatch, not a bare signature
	// failure, so tampering stays distinguishable from cross-use.
	other := KindRefresh
	if expected == KindRefresh {
		other = KindAccess
	}
	if cl, err2 := c.parse(tokenString, c.secret(other)); err2 == nil && cl.Subject == string(other) {
		return nil, ErrKindMismatch
	} else if errors.Is(err2, jwt.ErrTokenExpired) {
		return nil, ErrKindMismatch
	}
	return nil, ErrInvalidToken
}

func (c *Codec) parse(tokenString string, secret []byte) (*claims, error) {
	var cl claims
	t, err := jwt.ParseWithClaims(tokenString, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, ErrInvalidToken
	}
	return &cl, nil
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func payloadFromClaims(cl *claims, kind Kind) *Payload {
	p := &Payload{
		Kind:   kind,
		UserID: cl.UserID,
		Email:  cl.Email,
		Role:   cl.Role,
	}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		p.ExpiresAt = cl.ExpiresAt.Time
	}
	return p
}

var expiryPattern = regexp.MustCompile(`^(\d+)([mhd])$`)

// ParseExpiry parses an expiry string of the form <integer><unit> where unit
// is m (minutes), h (hours), or d (days). Unparseable input falls back to a
// conservative 15 minutes and logs a warning.
func ParseExpiry(s string, log *slog.Logger) time.Duration {
	if m := expiryPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			switch m[2] {
			case "m":
				return time.Duration(n) * time.Minute
			case "h":
				return time.Duration(n) * time.Hour
			case "d":
				return time.Duration(n) * 24 * time.Hour
			}
		}
	}
	if log == nil {
		log = slog.Default()
	}
	log.Warn("invalid token expiry format, defaulting to 15 minutes", "expiry", s)
	return 15 * time.Minute
}
