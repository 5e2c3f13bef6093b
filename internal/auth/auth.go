package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

const RoleAdmin = "admin"

var (
	// ErrTokenMissing is returned when no bearer token was presented.
	ErrTokenMissing = errors.New("auth: token missing")
	// ErrTokenInvalid covers signature, expiry, issuer and claim failures.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrNotConfigured is returned when no signing secret was supplied.
	ErrNotConfigured = errors.New("auth: verifier not configured")
)

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && strings.EqualFold(i.Role, RoleAdmin)
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option customises Verifier behaviour.
type Option func(*Verifier)

// WithIssuer requires the iss claim to match issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) {
		v.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses token and returns the identity it carries.
func (v *Verifier) Verify(token string) (*Identity, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var c claims
	if _, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := v.now()
	if !c.VerifyExpiresAt(now, true) {
		return nil, fmt.Errorf("%w: token expired", ErrTokenInvalid)
	}
	if !c.VerifyNotBefore(now, false) {
		return nil, fmt.Errorf("%w: token not yet valid", ErrTokenInvalid)
	}
	if v.issuer != "" && !c.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrTokenInvalid)
	}
	return &Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type contextKey struct{}

// WithIdentity stores the identity within the context for downstream code.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
