package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/sysutil"
)

// HeaderProfileID carries the client-chosen profile id.
const HeaderProfileID = "X-Profile-ID"

// AnonymousProfile is used when the client sends no usable id.
const AnonymousProfile = "anonymous"

const profileKey = "profileID"

var profileRE = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// Profile resolves the client profile from the X-Profile-ID header or the
// "profile" query parameter. Malformed ids fall back to AnonymousProfile so
// they can never escape their key namespace.
func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sysutil.FirstNonEmpty(c.GetHeader(HeaderProfileID), c.Query("profile"))
		if !profileRE.MatchString(id) {
			id = AnonymousProfile
		}
		c.Set(profileKey, id)
		c.Next()
	}
}

// ProfileFrom returns the resolved profile id, or AnonymousProfile.
func ProfileFrom(c *gin.Context) string {
	if v, ok := c.Get(profileKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousProfile
}
