package notify

import (
	"context"
	"fmt"
	"os"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender отправляет письма через почтовый релей. STARTTLS используется, если релей его поддерживает,
// PLAIN-аутентификация включается заданным Username.
type SMTPSender struct {
	conf SMTPConfig
}

func NewSMTPSender(conf SMTPConfig) *SMTPSender {
	return &SMTPSender{conf: conf}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, msgErr := newMailMessage(s.conf.From, msg)
	if msgErr != nil {
		return fmt.Errorf("smtp send: %w", msgErr)
	}
	client, clientErr := mail.NewClient(s.conf.Host, s.clientOptions()...)
	if clientErr != nil {
		return fmt.Errorf("smtp send: %w", clientErr)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.conf.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if s.conf.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.conf.Username),
			mail.WithPassword(s.conf.Password),
		)
	}
	return opts
}

// newMailMessage собирает письмо. Файл вложения читается при записи письма, поэтому должен существовать
// до конца отправки.
func newMailMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	if msg.Attachment != "" {
		// AttachFile молча пропускает отсутствующий файл
		if _, err := os.Stat(msg.Attachment); err != nil {
			return nil, fmt.Errorf("attachment: %w", err)
		}
		m.AttachFile(msg.Attachment)
	}
	return m, nil
}
