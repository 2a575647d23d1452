package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/core"
)

// SessionKey is the Gin context key holding the resolved *core.Session.
const SessionKey = "session"

// SessionMiddleware resolves the current session for every request before
// any feature handler runs. A valid Bearer token yields the authenticated
// profile; a missing, malformed, or unverifiable token falls back to the
// guest session rather than rejecting the request — spending checks still
// apply to the degraded session.
type SessionMiddleware struct {
	sessions core.SessionService
	verifier core.TokenVerifier
	logger   *zap.Logger
}

// NewSessionMiddleware creates the middleware. The verifier may be nil, in
// which case every request resolves as a guest.
func NewSessionMiddleware(sessions core.SessionService, verifier core.TokenVerifier, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{sessions: sessions, verifier: verifier, logger: logger}
}

// Resolve returns the Gin handler that attaches the session to the context.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		var identity *core.AuthIdentity

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && m.verifier != nil {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				verified, err := m.verifier.VerifyIDToken(c.Request.Context(), parts[1])
				if err != nil {
					m.logger.Warn("token verification failed; resolving as guest", zap.Error(err))
				} else {
					identity = verified
				}
			}
		}

		session, err := m.sessions.Resolve(c.Request.Context(), identity)
		if err != nil {
			// Resolve degrades internally; an error here means even the guest
			// fallback failed, which should not happen.
			m.logger.Error("session resolution failed", zap.Error(err))
			c.AbortWithStatusJSON(500, gin.H{"error": "session resolution failed"})
			return
		}
		c.Set(SessionKey, session)
		c.Next()
	}
}
