package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/service"
	"github.com/fsdevblog/groph-bank/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService AuthServicer
	jwtSecret   []byte
	tokenTTL    time.Duration
}

func NewAuthHandler(authService AuthServicer, jwtSecret []byte, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

type UserRegisterParams struct {
	Username      string `binding:"required,min=3,max=32"       json:"username"`
	Password      string `binding:"required,min=6,max_bytes=72" json:"password"`
	AccountNumber string `binding:"required,account_number"     json:"account_number"`
}

type UserResponse struct {
	Username      string `json:"username"`
	AccountNumber string `json:"account_number"`
}

// Register POST RouteGroup + RegisterRoute. Привязывает учетные данные к счету и аутентифицирует пользователя.
func (h *AuthHandler) Register(c *gin.Context) {
	var params UserRegisterParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	cred, err := h.authService.Register(ctx, service.RegisterArgs{
		Username:      params.Username,
		Password:      params.Password,
		AccountNumber: params.AccountNumber,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, cred)
}

type UserLoginParams struct {
	Username string `binding:"required,max=32"       json:"username"`
	Password string `binding:"required,max_bytes=72" json:"password"`
}

// Login POST RouteGroup + LoginRoute. Аутентификация по паре логин/пароль. Токен возвращается в заголовке
// Authorization.
func (h *AuthHandler) Login(c *gin.Context) {
	var params UserLoginParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	cred, err := h.authService.Login(ctx, params.Username, params.Password)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, cred)
}

type ResetParams struct {
	AccountNumber string `binding:"required,account_number" json:"account_number"`
}

// Reset POST RouteGroup + ResetRoute. Временный пароль уходит владельцу счета по почте.
func (h *AuthHandler) Reset(c *gin.Context) {
	var params ResetParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.authService.ResetCredential(ctx, params.AccountNumber); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusAccepted)
}

type ChangePasswordParams struct {
	OldPassword string `binding:"required,max_bytes=72"       json:"old_password"`
	NewPassword string `binding:"required,min=6,max_bytes=72" json:"new_password"`
}

// ChangePassword POST RouteGroup + PasswordRoute.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var params ChangePasswordParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.authService.ChangePassword(ctx, currentUsername(c), params.OldPassword, params.NewPassword); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, cred *domain.Credential) {
	token, tokenErr := tokens.GenerateUserJWT(cred.Username, cred.AccountNumber, h.tokenTTL, h.jwtSecret)
	if tokenErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, tokenErr).SetType(gin.ErrorTypePrivate)
		return
	}

	c.Header("Authorization", "Bearer "+token)
	c.JSON(status, gin.H{"user": UserResponse{
		Username:      cred.Username,
		AccountNumber: cred.AccountNumber,
	}})
}
