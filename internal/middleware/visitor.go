package middleware

import (
	"context"
	"net/http"
	"strings"

	"ochre-shop/internal/config"
	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenCookie carries the login token for browser callers.
const TokenCookie = "ochre_token"

type ctxKey int

const (
	sessionKey ctxKey = iota
	userKey
)

// TokenParser resolves a login token to a user id.
type TokenParser interface {
	Parse(raw string) (int64, error)
}

// Session makes sure every visitor carries a session id cookie and puts the
// id in the request context. Unknown or malformed ids are replaced.
func Session(cfg config.SessionConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sid = id.String()
				}
			}

			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug().Str("path", r.URL.Path).Msg("new visitor session")
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sid)))
		})
	}
}

// Authenticate reads a bearer token or the token cookie and, when valid,
// attaches the user id to the request. Requests without a valid token pass
// through as anonymous.
func Authenticate(tokens TokenParser, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				if c, err := r.Cookie(TokenCookie); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("ignoring invalid token")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			writeFailure(w, http.StatusUnauthorized, model.ErrUnauthorised.Message, model.ErrCodeUnauthorised)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey).(int64)
	return id, ok
}

// SessionID returns the visitor's session id, or "" outside Session.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey).(string)
	return sid
}

// VisitorFrom builds the cart identity of the request.
func VisitorFrom(ctx context.Context) model.Visitor {
	v := model.Visitor{SessionID: SessionID(ctx)}
	if id, ok := UserID(ctx); ok {
		v.UserID = &id
	}
	return v
}

// WithVisitor returns ctx carrying v. Used by tests and background callers.
func WithVisitor(ctx context.Context, v model.Visitor) context.Context {
	ctx = context.WithValue(ctx, sessionKey, v.SessionID)
	if v.UserID != nil {
		ctx = context.WithValue(ctx, userKey, *v.UserID)
	}
	return ctx
}
