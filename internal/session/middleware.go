package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/riddle-gift/pkg/http/errors"
)

// CookieName carries the session token for browser clients.
const CookieName = "riddle_session"

type ctxKey struct{}

// WithPlayerID stores the authenticated player in ctx.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, playerID)
}

// PlayerIDFromContext returns the player set by Middleware.
func PlayerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// TokenFromRequest looks for a bearer header, then the session cookie,
// then the token query parameter used by WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// Middleware rejects requests without a valid session token and injects the
// player id into the request context.
func Middleware(m *Manager, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := m.Parse(TokenFromRequest(r))
			switch {
			case errors.Is(err, ErrMissingToken):
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Session required")
				return
			case errors.Is(err, ErrExpiredToken):
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeTokenExpired, "Session expired")
				return
			case err != nil:
				logger.Warn().Err(err).Msg("token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid session token")
				return
			}

			ctx := WithPlayerID(r.Context(), claims.PlayerID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetCookie stores the issued token on the client.
func SetCookie(w http.ResponseWriter, issued Issued, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
