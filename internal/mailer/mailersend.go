package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

// MailerSend delivers messages through the MailerSend API.
type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	return &MailerSend{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *MailerSend) Send(ctx context.Context, msg Message) (string, error) {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return "", errors.New("empty recipient email")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out := m.client.Email.NewMessage()
	out.SetFrom(m.from)
	out.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.ToEmail}})
	out.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		out.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		out.SetHTML(msg.HTML)
	}

	res, err := m.client.Email.Send(ctx, out)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return res.Header.Get("X-Message-Id"), nil
}
