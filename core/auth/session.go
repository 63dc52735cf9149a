package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/foodie/api/web"
	"github.com/irsalhamdi/foodie/api/weberr"
	"github.com/irsalhamdi/foodie/core/claims"
)

const (
	userIDKey     = "userID"
	roleKey       = "role"
	oauthStateKey = "oauthState"
)

// LoadAndSave loads the session bound to the request cookie and commits it
// right before the response headers are written.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var token string
			if cookie, err := r.Cookie(sm.Cookie.Name); err == nil {
				token = cookie.Value
			}

			ctx, err := sm.Load(ctx, token)
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}

			sw := &sessionWriter{ResponseWriter: w, ctx: ctx, sm: sm}
			err = handler(ctx, sw, r.WithContext(ctx))
			if !sw.wrote {
				sw.commit()
			}
			if sw.err != nil {
				return fmt.Errorf("committing session: %w", sw.err)
			}
			return err
		}
		return h
	}
	return m
}

type sessionWriter struct {
	http.ResponseWriter
	ctx   context.Context
	sm    *scs.SessionManager
	wrote bool
	err   error
}

func (sw *sessionWriter) WriteHeader(code int) {
	if !sw.wrote {
		sw.commit()
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	if !sw.wrote {
		sw.WriteHeader(http.StatusOK)
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *sessionWriter) Flush() {
	if !sw.wrote {
		sw.WriteHeader(http.StatusOK)
	}
	if fl, ok := sw.ResponseWriter.(http.Flusher); ok {
		fl.Flush()
	}
}

// Unwrap lets http.ResponseController reach the connection's writer.
func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *sessionWriter) commit() {
	sw.wrote = true

	switch sw.sm.Status(sw.ctx) {
	case scs.Modified:
		token, expiry, err := sw.sm.Commit(sw.ctx)
		if err != nil {
			sw.err = err
			return
		}
		writeCookie(sw.ResponseWriter, sw.sm, token, expiry)
	case scs.Destroyed:
		writeCookie(sw.ResponseWriter, sw.sm, "", time.Time{})
	}
}

func writeCookie(w http.ResponseWriter, sm *scs.SessionManager, token string, expiry time.Time) {
	cookie := &http.Cookie{
		Name:     sm.Cookie.Name,
		Value:    token,
		Path:     sm.Cookie.Path,
		Domain:   sm.Cookie.Domain,
		Secure:   sm.Cookie.Secure,
		HttpOnly: sm.Cookie.HttpOnly,
		SameSite: sm.Cookie.SameSite,
	}

	switch {
	case expiry.IsZero():
		cookie.Expires = time.Unix(1, 0)
		cookie.MaxAge = -1
	case sm.Cookie.Persist:
		cookie.Expires = time.Unix(expiry.Unix()+1, 0)
		cookie.MaxAge = int(time.Until(expiry).Seconds() + 1)
	}

	w.Header().Add("Set-Cookie", cookie.String())
	w.Header().Add("Vary", "Cookie")
	w.Header().Add("Cache-Control", `no-cache="Set-Cookie"`)
}

// Authenticate rejects requests without a signed-in principal and exposes the
// principal to handlers through claims.
func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, sm)
			if !ok {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin is Authenticate restricted to the ADMIN role.
func Admin(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, sm)
			if !ok {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			if clm.Role != claims.RoleAdmin {
				return weberr.Forbidden(fmt.Errorf("user[%s] is not an admin", clm.UserID))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Optional attaches claims when a principal is signed in but lets anonymous
// requests through.
func Optional(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if clm, ok := sessionClaims(ctx, sm); ok {
				ctx = claims.Set(ctx, clm)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func sessionClaims(ctx context.Context, sm *scs.SessionManager) (claims.Claims, bool) {
	id := sm.GetString(ctx, userIDKey)
	if id == "" {
		return claims.Claims{}, false
	}
	return claims.Claims{UserID: id, Role: sm.GetString(ctx, roleKey)}, true
}

func signIn(ctx context.Context, sm *scs.SessionManager, userID, role string) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	sm.Put(ctx, userIDKey, userID)
	sm.Put(ctx, roleKey, role)
	return nil
}
