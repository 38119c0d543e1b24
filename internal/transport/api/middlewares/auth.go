package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/groph-bank/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
)

var ErrTokenNotExist = errors.New("token not exist")

const (
	CurrentUsernameKey      = "currentUsername"
	CurrentAccountNumberKey = "currentAccountNumber"
)

const bearerPrefix = "Bearer "

// checkAuthorization извлекает токен из заголовка Authorization и проверяет его. Если токен не передан, вернется ошибка
// ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (*tokens.UserClaims, error) {
	tokenHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(tokenHeader, bearerPrefix) {
		return nil, ErrTokenNotExist
	}

	claims, err := tokens.ValidateUserJWT(strings.TrimPrefix(tokenHeader, bearerPrefix), jwtTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("check authorization: %w", err)
	}
	return claims, nil
}

// AuthRequired проверяет, что запрос авторизован. Записывает в контекст имя пользователя (CurrentUsernameKey)
// и номер его счета (CurrentAccountNumberKey).
func AuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			_ = c.AbortWithError(http.StatusUnauthorized, err).SetType(gin.ErrorTypePrivate)
			return
		}
		c.Set(CurrentUsernameKey, claims.Username)
		c.Set(CurrentAccountNumberKey, claims.AccountNumber)
		c.Next()
	}
}

// NonAuthRequired пропускает запросы без токена или с недействительным токеном.
func NonAuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := checkAuthorization(c, jwtTokenSecret); err == nil {
			_ = c.AbortWithError(http.StatusForbidden, errors.New("already authorized")).
				SetType(gin.ErrorTypePublic)
			return
		}

		c.Next()
	}
}
