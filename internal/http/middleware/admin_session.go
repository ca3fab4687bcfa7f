package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
)

// AdminCookie holds the signed admin session.
const AdminCookie = "admin_auth"

// DefaultSessionTTL bounds how long an issued session is accepted.
const DefaultSessionTTL = 12 * time.Hour

type adminClaims struct {
	Admin    bool  `json:"admin"`
	IssuedAt int64 `json:"iat"`
}

// AdminSession issues and verifies the signed admin cookie. The cookie has
// no Max-Age, so browsers drop it when the session ends; the codec still
// refuses values older than TTL.
type AdminSession struct {
	codec  *securecookie.SecureCookie
	Secure bool
	Path   string
	now    func() time.Time
}

// NewAdminSession builds a session codec. hashKey signs the cookie and must
// be at least 32 bytes; blockKey optionally encrypts it (16, 24 or 32 bytes).
func NewAdminSession(hashKey, blockKey []byte, secure bool, ttl time.Duration) *AdminSession {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &AdminSession{codec: codec, Secure: secure, Path: "/", now: time.Now}
}

// Issue sets a fresh session cookie on the response.
func (s *AdminSession) Issue(c *gin.Context) error {
	v, err := s.codec.Encode(AdminCookie, adminClaims{Admin: true, IssuedAt: s.now().Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     AdminCookie,
		Value:    v,
		Path:     s.Path,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *AdminSession) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     AdminCookie,
		Value:    "",
		Path:     s.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Valid reports whether the request carries a genuine, unexpired session.
func (s *AdminSession) Valid(c *gin.Context) bool {
	ck, err := c.Request.Cookie(AdminCookie)
	if err != nil || ck.Value == "" {
		return false
	}
	var claims adminClaims
	if err := s.codec.Decode(AdminCookie, ck.Value, &claims); err != nil {
		return false
	}
	return claims.Admin
}

// Require aborts with 401 unless the request has a valid admin session.
func (s *AdminSession) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Valid(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "unauthorized",
				"message":    "admin session required",
			})
			return
		}
		c.Next()
	}
}
