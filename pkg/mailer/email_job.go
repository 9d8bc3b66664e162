package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/tripdesk/pkg/mailer/templates"
)

// EmailJob is the JSON payload queued on RabbitMQ for the email worker.
// Either Template (+Data) or a prebuilt Subject/Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

var ErrNoRecipient = errors.New("email job has no recipient")

// Normalize validates the recipient and mirrors it into Data for the templates.
func (j *EmailJob) Normalize() error {
	j.To = strings.TrimSpace(j.To)
	if j.To == "" || !strings.Contains(j.To, "@") {
		return fmt.Errorf("%w: %q", ErrNoRecipient, j.To)
	}
	if j.Data == nil {
		j.Data = map[string]any{}
	}
	if v, ok := j.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		j.Data["Email"] = j.To
	}
	j.Template = strings.ToLower(strings.TrimSpace(j.Template))
	return nil
}

// Compose returns the message to send: the rendered template when one is
// named, otherwise the prebuilt parts.
func (j *EmailJob) Compose() (subject, text, html string, err error) {
	if j.Template == "" {
		if j.Subject == "" || (j.Text == "" && j.HTML == "") {
			return "", "", "", errors.New("email job has neither a template nor a body")
		}
		return j.Subject, j.Text, j.HTML, nil
	}
	return templates.Render(j.Template, j.Data)
}
