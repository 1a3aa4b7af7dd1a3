package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-admin/internal/handler"
	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/pkg/auth"
)

// ContextAccount is the gin context key holding the authenticated *model.Account.
const ContextAccount = "account"

// SessionSource reports the account of the active session.
type SessionSource interface {
	Current() (*model.Account, bool)
}

type AuthMiddleware struct {
	tokens  auth.JWTService
	session SessionSource
}

func NewAuthMiddleware(tokens auth.JWTService, session SessionSource) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:  tokens,
		session: session,
	}
}

// Authenticate verifies the bearer token and that it was issued to the
// account of the active session. A token outlives logout, the session does not.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse(msg))
			return
		}

		account, ok := m.session.Current()
		if !ok || account.ID != claims.AccountID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
			return
		}

		c.Set(ContextAccount, account)
		c.Next()
	}
}

// RequireRole rejects accounts whose role is not listed.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
			return
		}
		for _, r := range roles {
			if account.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
	}
}

// CurrentAccount returns the account set by Authenticate.
func CurrentAccount(c *gin.Context) (*model.Account, bool) {
	v, ok := c.Get(ContextAccount)
	if !ok {
		return nil, false
	}
	account, ok := v.(*model.Account)
	return account, ok && account != nil
}
