// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the signed-in user. Authenticate reads the session token
// from the session cookie or an "Authorization: Bearer" header and, when the
// session is valid, stores the user id under the "userID" context key (as a
// decimal string, the shape the logger and rate limiter expect).
// RequireUser rejects anonymous requests with a 401 envelope.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyUserID       = "userID"
	ctxKeySessionToken = "session.token"
)

// SessionResolver maps a session token to a user id. Any error means the
// request is treated as anonymous.
type SessionResolver func(ctx context.Context, token string) (uint, error)

// Authenticate attaches the session's user to the context. It never rejects a
// request; combine it with RequireUser on routes that need a user.
func Authenticate(cookieName string, resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionTokenFrom(c.Request, cookieName)
		if token == "" || resolve == nil {
			c.Next()
			return
		}
		c.Set(ctxKeySessionToken, token)
		if uid, err := resolve(c.Request.Context(), token); err == nil && uid != 0 {
			c.Set(ctxKeyUserID, strconv.FormatUint(uint64(uid), 10))
		} else if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("session not resolved")
		}
		c.Next()
	}
}

// RequireUser aborts with 401 unless Authenticate identified a user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "unauthorized",
			"message":    "sign in required",
		})
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uint, bool) {
	s := userIDFromCtx(c)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// SessionToken returns the raw token presented by the client, valid or not.
func SessionToken(c *gin.Context) string {
	return asString(c.Value(ctxKeySessionToken))
}

// sessionTokenFrom prefers the Bearer header over the cookie.
func sessionTokenFrom(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	if cookieName != "" {
		if ck, err := r.Cookie(cookieName); err == nil {
			return strings.TrimSpace(ck.Value)
		}
	}
	return ""
}
