package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	apperrors "github.com/sentinelshop/storefront-api/internal/errors"
)

const IdentityKey = "identity"

// SessionMiddleware resolves the shopper's session after authentication has
// run and stores the resulting identity in the context.
type SessionMiddleware struct {
	sessions   service.SessionService
	cookieName string
	secure     bool
}

func NewSessionMiddleware(sessions service.SessionService, cookieName string, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
		secure:     secure,
	}
}

func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		in := service.ResolveInput{}
		if userID, ok := GetUserID(c); ok {
			in.UserID = &userID
		}
		if cookie, err := c.Cookie(m.cookieName); err == nil {
			in.CookieToken = cookie
		}

		res, err := m.sessions.Resolve(c.Request.Context(), in)
		if err != nil {
			log.Error("Failed to resolve session", err)
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.SessionUnavailable, "Could not establish a session")
			c.Abort()
			return
		}

		switch {
		case res.SetCookie:
			m.writeCookie(c, res.CookieToken, res.CookieExpires)
		case res.ClearCookie:
			m.writeCookie(c, "", time.Unix(0, 0))
		}

		c.Set(IdentityKey, res.Identity)
		c.Next()
	}
}

func (m *SessionMiddleware) writeCookie(c *gin.Context, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if value == "" || maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetIdentity returns the identity set by SessionMiddleware.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(service.Identity)
	return id, ok
}
