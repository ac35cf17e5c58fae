// Package mailer sends the post-registration welcome email.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const welcomePlain = `Hi {{.FirstName}},

Your account is ready.  You can now sign in and start uploading projects.
`

var welcomePlainTemplate = template.Must(template.New("welcome").Parse(welcomePlain))

type Mailer struct {
	sendgridClient *sendgrid.Client
	fromName       string
	fromAddress    string
}

func New(sendgridClient *sendgrid.Client, fromName, fromAddress string) *Mailer {
	return &Mailer{
		sendgridClient: sendgridClient,
		fromName:       fromName,
		fromAddress:    fromAddress,
	}
}

// SendWelcome mails a newly registered user.
func (m *Mailer) SendWelcome(ctx context.Context, email, firstName string) error {
	message := mail.NewV3Mail()
	message.From = mail.NewEmail(m.fromName, m.fromAddress)
	message.Subject = "Welcome!"

	personalization := mail.NewPersonalization()
	personalization.To = append(personalization.To, mail.NewEmail(firstName, email))
	message.Personalizations = append(message.Personalizations, personalization)

	textContent := &bytes.Buffer{}
	if err := welcomePlainTemplate.Execute(textContent, struct{ FirstName string }{firstName}); err != nil {
		return fmt.Errorf("while templating welcome email: %w", err)
	}

	message.Content = append(message.Content, mail.NewContent("text/plain", textContent.String()))

	resp, err := m.sendgridClient.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through SendGrid: %d %s", resp.StatusCode, resp.Body)
	}

	return nil
}
