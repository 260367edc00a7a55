// Package email sends the optional email copy of a delivered notification.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclient "edumatch-notifications/internal/common/aws"
)

const (
	subjectTemplate = "{{title}}"
	bodyTemplate    = "{{body}}\n\nOpen EduMatch to see the details of this {{type}} notification."
)

// Copy is one notification rendered for email.
type Copy struct {
	To    string
	Title string
	Body  string
	Type  string
}

type Mailer struct {
	client awsclient.SESService
	from   string
}

func NewMailer(client awsclient.SESService, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

func (m *Mailer) Send(ctx context.Context, c Copy) error {
	if c.To == "" {
		return fmt.Errorf("email copy has no recipient address")
	}

	data := map[string]interface{}{
		"title": c.Title,
		"body":  c.Body,
		"type":  strings.ToLower(strings.ReplaceAll(c.Type, "_", " ")),
	}
	subject := renderTemplate(subjectTemplate, data)
	body := renderTemplate(bodyTemplate, data)

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{c.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(m.from),
	})
	return err
}

// renderTemplate replaces {{key}} placeholders; unknown placeholders are removed.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
