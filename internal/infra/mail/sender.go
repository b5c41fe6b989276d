package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadbridge/internal/infra/queue"
)

func NewEmailSender(host string, port int, user, password, from, operator string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		Operator: operator,
	}
}

var failureTmpl = template.Must(template.New("failure").Parse(
	`A lead could not be delivered to Follow Up Boss and has been marked permanently failed.

Lead email:    {{.LeadEmail}}
Retries spent: {{.RetryCount}}
Last response: {{.LastResponse}}

The lead is still stored locally. Check the FUB connection and the
subscription status, then redrive it from the delivery log.
`))

// SendFailureAlert emails the operator about a permanently failed
// lead. Failures here are reported to the queue worker, which nacks.
func (s *EmailSender) SendFailureAlert(alert queue.FailureAlert) error {
	data := FailureAlertData{
		LeadEmail:    alert.Email,
		RetryCount:   alert.RetryCount,
		LastResponse: alert.LastResponse,
	}

	var body bytes.Buffer
	if err := failureTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render alert template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.Operator)
	m.SetHeader("Subject", fmt.Sprintf("Lead delivery permanently failed: %s", alert.Email))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
