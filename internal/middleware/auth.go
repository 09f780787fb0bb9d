package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	internalauth "github.com/payperplay/hosting/internal/auth"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/store"
)

const candidateContextKey = "candidate"

// AuthMiddleware verifies the bearer JWT against the configured JWKS, resolves the
// verified email to a Candidate (auto-bootstrapping admins per O4), and rejects
// requests from unknown or deactivated candidates.
func AuthMiddleware(authenticator *internalauth.Authenticator, candidates *store.CandidateRepo, adminEmails []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		claims, err := authenticator.Authenticate(c.Request.Context(), authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		candidate, err := internalauth.ResolveCandidate(c.Request.Context(), candidates, claims.Email, claims.Name, adminEmails)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve candidate"})
			c.Abort()
			return
		}
		if candidate == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "not on the allow-list"})
			c.Abort()
			return
		}
		if !candidate.IsActive() {
			c.JSON(http.StatusForbidden, gin.H{"error": "candidate deactivated"})
			c.Abort()
			return
		}

		c.Set(candidateContextKey, candidate)
		c.Next()
	}
}

// RequireAdmin rejects non-admin candidates. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := CandidateFromContext(c)
		if candidate == nil || !candidate.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CandidateFromContext extracts the authenticated Candidate set by AuthMiddleware.
func CandidateFromContext(c *gin.Context) *models.Candidate {
	v, exists := c.Get(candidateContextKey)
	if !exists {
		return nil
	}
	candidate, ok := v.(*models.Candidate)
	if !ok {
		return nil
	}
	return candidate
}
