package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// setTokenCookie stores a credential in a cookie that expires together with
// the token. Re-setting the same name replaces the previous value.
func (h *handler) setTokenCookie(c *gin.Context, name string, tok *auth.Token) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}

// accessToken reads the access credential from the Authorization header,
// falling back to the cookie.
func accessToken(c *gin.Context) string {
	if tok, ok := strings.CutPrefix(c.GetHeader(common.AuthorizationHeaderName), common.BearerPrefix); ok && tok != "" {
		return tok
	}
	return cookieValue(c, common.AccessTokenCookieName)
}
