package service

import (
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

// logTokenClaims logs the tenant, object id and expiry of a user token for
// diagnostics. The signature is not checked: the identity platform validates
// the assertion during the exchange, and nothing here is trusted for access
// decisions. Opaque or malformed tokens are only noted.
func logTokenClaims(logger *slog.Logger, userToken string) {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(userToken, claims); err != nil {
		logger.Debug("user token is not a readable JWT", slog.String("error", err.Error()))
		return
	}

	attrs := []any{}

	if tid, ok := claims["tid"].(string); ok {
		attrs = append(attrs, slog.String("tid", tid))
	}

	if oid, ok := claims["oid"].(string); ok {
		attrs = append(attrs, slog.String("oid", oid))
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		attrs = append(attrs, slog.Time("exp", exp.UTC()))
	}

	logger.Debug("user token claims", attrs...)
}
