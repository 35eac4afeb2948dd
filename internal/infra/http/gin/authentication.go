package ginserver

import (
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentboard/internal/app/services/auth"
	domainauth "rentboard/internal/domain/auth"
	domainuser "rentboard/internal/domain/user"
)

const principalContextKey = "rentboard.principal"

type principal struct {
	User  *domainuser.User
	Token string
}

func (p principal) ID() string {
	return string(p.User.ID)
}

func (p principal) HasRole(role domainuser.Role) bool {
	return p.User != nil && p.User.Role == role
}

// AuthMiddleware resolves the bearer token into a principal. Requests without a valid token
// pass through anonymously; handlers decide whether they need one.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{User: resolved.User, Token: token})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok && p.User != nil
}

// requireRole writes 401/403 and returns false when the caller is anonymous or lacks role.
// An empty role accepts any signed-in user.
func requireRole(c *gin.Context, role domainuser.Role) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		abortWithCode(c, codeAuthRequired)
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		abortWithCode(c, codeForbidden)
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
