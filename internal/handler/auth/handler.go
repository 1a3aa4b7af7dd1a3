package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-admin/internal/handler"
	"github.com/jwalitptl/dental-admin/internal/middleware"
	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/service/auth"
	pkgauth "github.com/jwalitptl/dental-admin/pkg/auth"
)

type Handler struct {
	svc    *auth.Service
	tokens pkgauth.JWTService
}

func NewHandler(svc *auth.Service, tokens pkgauth.JWTService) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// RegisterRoutes registers the public login route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// RegisterProtectedRoutes registers routes that need an authenticated session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if auth.IsInvalidCredentials(err) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid email or password"))
			return
		}
		handler.Error(c, err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(account)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.LoginResponse{
		AccessToken: token,
		Account:     account.Public(),
	}))
}

// Logout clears the session even when the persisted copy cannot be removed;
// the failure is still reported.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context()); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("logged out successfully"))
}

func (h *Handler) Me(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(account.Public()))
}
