package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SessionCookie  = "basemap-session"
	verifierCookie = "basemap-pkce"
	userKey        = "user"
)

// Handlers serves the Supabase OAuth login round trip.
type Handlers struct {
	Supabase    Exchanger
	Development bool
	Log         *zap.Logger
}

func (h *Handlers) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func origin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// safeNext keeps only relative redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return "/"
	}
	return next
}

func errorURL(o string, params url.Values) string {
	return o + "/auth/error?" + params.Encode()
}

// LoginHandler: GET /auth/login?provider=&next=
func (h *Handlers) LoginHandler(c *gin.Context) {
	provider := strings.TrimSpace(c.Query("provider"))
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider is required"})
		return
	}

	verifier, err := generateCodeVerifier()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pkce_error", "details": err.Error()})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(verifierCookie, verifier, 600, "/auth", "", !h.Development, true)

	o := origin(c)
	redirectTo := o + "/auth/oauth?" + url.Values{"next": {safeNext(c.Query("next"))}}.Encode()
	c.Redirect(http.StatusSeeOther, h.Supabase.AuthorizeURL(provider, redirectTo, codeChallengeFromVerifier(verifier)))
}

// OAuthHandler: GET /auth/oauth, the provider callback.
func (h *Handlers) OAuthHandler(c *gin.Context) {
	o := origin(c)
	code := c.Query("code")
	providerErr := c.Query("error")
	next := safeNext(c.Query("next"))

	if providerErr != "" {
		h.log().Error("OAuth provider error",
			zap.String("error", providerErr), zap.String("description", c.Query("error_description")))
		c.Redirect(http.StatusFound, errorURL(o, url.Values{
			"error":       {providerErr},
			"description": {c.Query("error_description")},
		}))
		return
	}

	if code == "" {
		h.log().Error("No code or error in callback")
		c.Redirect(http.StatusFound, o+"/auth/error?error=no_code")
		return
	}

	verifier, _ := c.Cookie(verifierCookie)
	if verifier == "" {
		c.Redirect(http.StatusFound, errorURL(o, url.Values{
			"error":   {"exchange_failed"},
			"message": {"missing code verifier"},
		}))
		return
	}

	sess, err := h.Supabase.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		h.log().Error("Failed to exchange code", zap.Error(err))
		c.Redirect(http.StatusFound, errorURL(o, url.Values{
			"error":   {"exchange_failed"},
			"message": {err.Error()},
		}))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(verifierCookie, "", -1, "/auth", "", !h.Development, true)
	c.SetCookie(SessionCookie, sess.AccessToken, int(sess.ExpiresIn), "/", "", !h.Development, true)
	h.log().Info("session created", zap.String("userId", sess.User.ID))

	target := o + next
	if fh := c.GetHeader("X-Forwarded-Host"); !h.Development && fh != "" {
		target = "https://" + fh + next
	}
	c.Redirect(http.StatusFound, target)
}

// ErrorHandler: GET /auth/error
func (h *Handlers) ErrorHandler(c *gin.Context) {
	resp := gin.H{"title": "Sorry, something went wrong."}
	empty := true
	for _, k := range []string{"error", "description", "message"} {
		if v := c.Query(k); v != "" {
			resp[k] = v
			empty = false
		}
	}
	if empty {
		resp["message"] = "An unspecified error occurred."
	}
	c.JSON(http.StatusOK, resp)
}

// LogoutHandler: POST /auth/logout
func (h *Handlers) LogoutHandler(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", !h.Development, true)
	c.Status(http.StatusNoContent)
}

// RequireUser rejects requests without a valid bearer token or session cookie.
func RequireUser(v Verifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			token = strings.TrimSpace(h[7:])
		}
		if token == "" {
			token, _ = c.Cookie(SessionCookie)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "You must be logged in"})
			return
		}
		u, err := v.Verify(c.Request.Context(), token)
		if err != nil && !errors.Is(err, ErrUnauthorized) {
			log.Error("token verification unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load jwks", "details": err.Error()})
			return
		}
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// UserFrom returns the user stored by RequireUser.
func UserFrom(c *gin.Context) (User, bool) {
	u, ok := c.Get(userKey)
	if !ok {
		return User{}, false
	}
	user, ok := u.(User)
	return user, ok
}
