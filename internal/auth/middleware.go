package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phimhub/internal/progress"
)

const CtxClaimsKey = "auth_claims"

// AuthMiddleware validates the bearer token and, when a repo is given,
// rejects tokens whose version predates a password change or logout.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		if repo != nil {
			currentVersion, err := repo.GetTokenVersion(c.Request.Context(), claims.UserID)
			if err != nil || currentVersion != claims.TokenVersion {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				c.Abort()
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[len("Bearer "):]), true
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// SessionFromToken builds the session context a playback client hands to
// its progress reporter. An unparseable token yields an anonymous
// session, which degrades progress sync to a no-op instead of failing.
func SessionFromToken(tokens TokenService, raw string) progress.SessionContext {
	if raw == "" {
		return progress.SessionContext{}
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return progress.SessionContext{}
	}
	return progress.SessionContext{UserID: claims.UserID, Token: raw}
}
