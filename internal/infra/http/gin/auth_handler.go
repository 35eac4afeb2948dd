package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentboard/internal/app/dto"
	authsvc "rentboard/internal/app/services/auth"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
	UpdateMe(c *gin.Context)
}

type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, h.Logger, "register", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Login(c *gin.Context) {
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	token := bearerTokenFromContext(c)
	if err := h.Service.Logout(c.Request.Context(), token); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("logout failed", "error", err)
		}
		abortWithCode(c, codeInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(p.User))
}

// UpdateMe replaces the caller's name and phone.
func (h AuthHandler) UpdateMe(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		abortWithCode(c, codeUnavailable)
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, codeInvalidRequest)
		return
	}
	user, err := h.Service.UpdateProfile(c.Request.Context(), p.ID(), authsvc.ProfileParams{Name: req.Name, Phone: req.Phone})
	if err != nil {
		respondError(c, h.Logger, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func bearerTokenFromContext(c *gin.Context) string {
	if p, ok := currentPrincipal(c); ok && p.Token != "" {
		return p.Token
	}
	return extractBearerToken(c.GetHeader("Authorization"))
}

var _ AuthHTTP = (*AuthHandler)(nil)
