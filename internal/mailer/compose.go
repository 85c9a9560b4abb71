package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"submissionportal/internal/notify"
)

var (
	welcomeTemplate = template.Must(template.New("welcome").Parse(
		`<h1>Welcome, {{.StudentName}}</h1><p>Your account has been created.</p>`))

	submissionTemplate = template.Must(template.New("submission").Parse(
		`<h1>New assignment submitted</h1>` +
			`<p>{{.StudentName}} ({{.StudentId}}) has submitted a new assignment.</p>` +
			`<p><strong>Assignment:</strong> {{.SubmissionName}}</p>` +
			`<p><strong>File:</strong> <a href="{{.FileURL}}">{{.FileId}}</a></p>`))
)

// Compose turns an event into the mail it triggers. Submissions go to the
// student and, when set, the operator address.
func Compose(event *notify.Event, operator string) (*Message, error) {
	var (
		tmpl    *template.Template
		subject string
		to      = []string{event.StudentEmail}
	)

	switch event.Type {
	case notify.EventAccountRegistered:
		tmpl, subject = welcomeTemplate, "Welcome to the submission portal"
	case notify.EventSubmissionCreated:
		tmpl, subject = submissionTemplate, "New assignment submitted"
		if operator != "" && operator != event.StudentEmail {
			to = append(to, operator)
		}
	default:
		return nil, fmt.Errorf("mailer: unknown event type %q", event.Type)
	}

	if event.StudentEmail == "" {
		return nil, fmt.Errorf("mailer: event %s has no student email", event.Id)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, event); err != nil {
		return nil, fmt.Errorf("mailer: render %s: %w", event.Type, err)
	}
	return &Message{To: to, Subject: subject, HTML: body.String()}, nil
}
