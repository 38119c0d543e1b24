package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New инициализирует логгер. Нераспознанный level заменяется на info.
func New(output io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(output)
	l.SetFormatter(new(logrus.JSONFormatter))

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	// для окружений отличных от продакшн удобнее читать текстовый лог
	if os.Getenv("GIN_MODE") != "release" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return l
}
