package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// statusErrorText текст ответа для приватной ошибки. Статусы ниже 400 означают, что обработчик
// не выставил код ошибки.
func statusErrorText(status int) string {
	text := http.StatusText(status)
	if status < http.StatusBadRequest || text == "" {
		text = http.StatusText(http.StatusInternalServerError)
	}
	return strings.ToLower(text)
}

// Errors формирует тело ответа по первой публичной ошибке, добавленной обработчиком. Текст приватных ошибок
// клиенту не отдается, вместо него используется описание статуса.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// тело ответа уже сформировано обработчиком
		if len(c.Errors) == 0 || c.Writer.Size() > 0 {
			return
		}

		status := c.Writer.Status()
		msg := statusErrorText(status)
		if public := c.Errors.ByType(gin.ErrorTypePublic); len(public) > 0 {
			msg = public[0].Error()
		}

		if strings.Contains(c.GetHeader("Accept"), "text/plain") {
			c.String(status, msg)
		} else {
			c.JSON(status, gin.H{"error": msg})
		}
		c.Abort()
	}
}
