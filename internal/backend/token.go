package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("backend token expired")

// TokenInfo is what the desk can learn from the bearer token without the
// backend's signing key.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// InspectToken decodes the configured bearer token to report its subject and
// expiry. The signature is not verified; the backend does that. Opaque
// (non-JWT) tokens return an error and should be passed through unchanged.
func InspectToken(token string, now time.Time) (TokenInfo, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return TokenInfo{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return TokenInfo{}, fmt.Errorf("parse token: unexpected claims type")
	}

	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return info, fmt.Errorf("parse token: %w", err)
	}
	if exp == nil {
		return info, nil
	}
	info.ExpiresAt = exp.Time
	if !info.ExpiresAt.After(now) {
		return info, ErrTokenExpired
	}
	return info, nil
}

// CheckToken logs the state of the client's token at startup.
func (c *Client) CheckToken(now time.Time) {
	if c.token == "" {
		return
	}
	info, err := InspectToken(c.token, now)
	switch {
	case errors.Is(err, ErrTokenExpired):
		c.log.Warn("Backend token for %q expired at %s", info.Subject, info.ExpiresAt.Format(time.RFC3339))
	case err != nil:
		c.log.Debug("Backend token is not a JWT, using as opaque: %v", err)
	case info.ExpiresAt.IsZero():
		c.log.Info("Backend token for %q has no expiry", info.Subject)
	default:
		c.log.Info("Backend token for %q valid until %s", info.Subject, info.ExpiresAt.Format(time.RFC3339))
	}
}
