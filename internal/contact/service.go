// Package contact turns public contact-form submissions into notification
// email for the site owner.
package contact

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/folio-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/folio-backend/pkg/errors"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"github.com/angelmondragon/folio-backend/pkg/mailer"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxNameLength    = 100
	maxSubjectLength = 150
	maxPhoneLength   = 30
	minMessageLength = 10
	maxMessageLength = 5000
)

var validate = validator.New()

// submissions are rendered as text; every tag is stripped.
var stripTags = bluemonday.StrictPolicy()

var bodyTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #222;">
<h2>New portfolio inquiry</h2>
<table cellpadding="4">
<tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>
<tr><td><strong>Email</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
{{- if .Phone}}
<tr><td><strong>Phone</strong></td><td>{{.Phone}}</td></tr>
{{- end}}
{{- if .Subject}}
<tr><td><strong>Subject</strong></td><td>{{.Subject}}</td></tr>
{{- end}}
<tr><td><strong>Received</strong></td><td>{{.ReceivedAt}}</td></tr>
</table>
{{- range .Paragraphs}}
<p>{{.}}</p>
{{- end}}
</body>
</html>
`))

// Request is a visitor's contact-form submission.
type Request struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

type Service interface {
	Submit(ctx context.Context, req Request) error
}

type service struct {
	notifier mailer.Notifier
	from     string
	to       string
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the contact service. Submissions fail with a dependency
// error when no sender or recipient is configured.
func NewService(notifier mailer.Notifier, cfg config.MailConfig, logg *logger.Logger) (Service, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		notifier: notifier,
		from:     strings.TrimSpace(cfg.From),
		to:       strings.TrimSpace(cfg.ContactTo),
		logg:     logg,
		now:      time.Now,
	}, nil
}

type view struct {
	Name       string
	Email      string
	Phone      string
	Subject    string
	ReceivedAt string
	Paragraphs []string
}

func (s *service) Submit(ctx context.Context, req Request) error {
	v, err := s.normalize(req)
	if err != nil {
		return err
	}
	if s.from == "" || s.to == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "contact form is not configured")
	}

	var body bytes.Buffer
	if err := bodyTemplate.Execute(&body, v); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render contact email")
	}

	subject := "Portfolio inquiry from " + v.Name
	if v.Subject != "" {
		subject = fmt.Sprintf("%s (%s)", v.Subject, v.Name)
	}

	ctx = s.logg.WithField(ctx, "reply_to", v.Email)
	err = s.notifier.Send(context.WithoutCancel(ctx), mailer.Message{
		To:      []string{s.to},
		From:    s.from,
		ReplyTo: v.Email,
		Subject: subject,
		HTML:    body.String(),
	})
	if err != nil {
		s.logg.Error(ctx, "contact email delivery failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "could not send your message, please try again later")
	}
	s.logg.Info(ctx, "contact email sent")
	return nil
}

func (s *service) normalize(req Request) (view, error) {
	name := singleLine(req.Name)
	if name == "" {
		return view{}, validation("name", "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return view{}, validation("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	email := strings.TrimSpace(req.Email)
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return view{}, validation("email", "a valid email address is required")
	}

	phone := singleLine(req.Phone)
	if utf8.RuneCountInString(phone) > maxPhoneLength {
		return view{}, validation("phone", fmt.Sprintf("phone must be at most %d characters", maxPhoneLength))
	}
	subject := singleLine(req.Subject)
	if utf8.RuneCountInString(subject) > maxSubjectLength {
		return view{}, validation("subject", fmt.Sprintf("subject must be at most %d characters", maxSubjectLength))
	}

	message := strings.TrimSpace(plainText(req.Message))
	switch n := utf8.RuneCountInString(message); {
	case n < minMessageLength:
		return view{}, validation("message", fmt.Sprintf("message must be at least %d characters", minMessageLength))
	case n > maxMessageLength:
		return view{}, validation("message", fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}

	return view{
		Name:       name,
		Email:      email,
		Phone:      phone,
		Subject:    subject,
		ReceivedAt: s.now().UTC().Format(time.RFC1123),
		Paragraphs: paragraphs(message),
	}, nil
}

func validation(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]string{"field": field})
}

// plainText strips markup and decodes entities; html/template re-escapes on
// render.
func plainText(raw string) string {
	return html.UnescapeString(stripTags.Sanitize(raw))
}

func singleLine(raw string) string {
	return strings.Join(strings.Fields(plainText(raw)), " ")
}

func paragraphs(message string) []string {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(message, "\n\n") {
		if line := strings.Join(strings.Fields(block), " "); line != "" {
			out = append(out, line)
		}
	}
	return out
}
