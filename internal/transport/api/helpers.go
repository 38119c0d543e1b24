package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/groph-bank/internal/domain"
	"github.com/fsdevblog/groph-bank/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// currentUsername берет из контекста gin имя текущего пользователя. Значение устанавливается в
// middlewares.AuthRequired, при его отсутствии вернется пустая строка.
func currentUsername(c *gin.Context) string {
	return c.GetString(middlewares.CurrentUsernameKey)
}

// currentAccountNumber номер счета текущего пользователя из токена.
func currentAccountNumber(c *gin.Context) string {
	return c.GetString(middlewares.CurrentAccountNumberKey)
}

// bindJSON разбирает тело запроса в params. При ошибке запрос прерывается и вернется false.
func bindJSON(c *gin.Context, params any) bool {
	if bindErr := c.ShouldBindJSON(params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, params any) bool {
	if bindErr := c.ShouldBindQuery(params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return false
	}
	return true
}

func abortWithBindError(c *gin.Context, bindErr error) {
	var valErrs validator.ValidationErrors
	if errors.As(bindErr, &valErrs) {
		_ = c.AbortWithError(http.StatusUnprocessableEntity, errors.New(validationMessage(valErrs))).
			SetType(gin.ErrorTypePublic)
		return
	}
	_ = c.AbortWithError(http.StatusBadRequest, bindErr).
		SetType(gin.ErrorTypeBind)
}

func validationMessage(valErrs validator.ValidationErrors) string {
	fields := make([]string, 0, len(valErrs))
	for _, fe := range valErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// serviceErrorStatus сопоставляет ошибку сервиса http статусу.
func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrNoContactChannel),
		errors.Is(err, domain.ErrInvalidHolder),
		errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTargetNotFound),
		errors.Is(err, domain.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrDuplicateAccountLink):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithServiceError прерывает запрос с ошибкой сервиса. Клиент получает короткое сообщение из
// domain.PublicMessage, исходная ошибка попадает в лог.
func abortWithServiceError(c *gin.Context, err error) {
	status := serviceErrorStatus(err)
	_ = c.Error(errors.New(domain.PublicMessage(err))).SetType(gin.ErrorTypePublic)
	_ = c.AbortWithError(status, err).SetType(gin.ErrorTypePrivate)
}
