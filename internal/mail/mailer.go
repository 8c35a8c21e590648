// Package mail отправляет письма через shoutrrr. Отправка best-effort:
// ошибки логируются и не возвращаются в бизнес-логику.
package mail

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/agromarket-backend/internal/goroutine"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
)

// Sender отправляет одно письмо.
type Sender interface {
	Send(message string, params *types.Params) []error
}

type Mailer struct {
	sender Sender
}

// NewMailer разбирает smtp-URL shoutrrr. Пустой URL даёт выключенный Mailer.
func NewMailer(smtpURL string, timeout time.Duration) (*Mailer, error) {
	smtpURL = strings.TrimSpace(smtpURL)
	if smtpURL == "" {
		return &Mailer{}, nil
	}

	sender, err := shoutrrr.CreateSender(smtpURL)
	if err != nil {
		return nil, fmt.Errorf("mail: некорректный SMTP_URL: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return newWithSender(sender), nil
}

func newWithSender(s Sender) *Mailer {
	return &Mailer{sender: s}
}

var _ Sender = (*router.ServiceRouter)(nil)

func (m *Mailer) Enabled() bool {
	return m != nil && m.sender != nil
}

// Send синхронно отправляет письмо на адрес to.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("mail: пустой адрес получателя")
	}

	params := types.Params{"toaddresses": to}
	params.SetTitle(subject)
	for _, err := range m.sender.Send(body, &params) {
		if err != nil {
			return fmt.Errorf("mail: отправка не удалась: %w", err)
		}
	}
	return nil
}

// SendAsync отправляет письмо в фоне.
func (m *Mailer) SendAsync(to, subject, body string) {
	if !m.Enabled() {
		return
	}
	goroutine.SafeGo(func() {
		if err := m.Send(to, subject, body); err != nil {
			logger.Log.WithFields(logrus.Fields{"to": to, "subject": subject}).
				WithError(err).Warn("не удалось отправить письмо")
		}
	})
}
