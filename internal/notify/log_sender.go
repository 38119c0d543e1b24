package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender вместо отправки пишет в лог получателя и тему. Тело письма может содержать временный пароль,
// поэтому в лог не попадает.
type LogSender struct {
	l *logrus.Entry
}

func NewLogSender(l *logrus.Logger) *LogSender {
	return &LogSender{l: l.WithFields(logrus.Fields{"component": "notify", "module": "log_sender"})}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.l.WithFields(logrus.Fields{
		"to":             msg.To,
		"subject":        msg.Subject,
		"has_attachment": msg.Attachment != "",
	}).Info("notification")
	return nil
}
