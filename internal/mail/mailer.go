// Package mail sends family announcement emails through Amazon SES.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SESAPI is the subset of the SES v2 client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Options configure a Mailer. An empty FromEmail disables sending.
type Options struct {
	Region     string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

// Recipient is one addressee of an announcement.
type Recipient struct {
	Email string
	Name  string
}

// Announcement is the content of a family-wide announcement email.
type Announcement struct {
	FamilyName string
	Title      string
	Message    string
}

// Mailer delivers announcement emails. The zero value is a disabled mailer.
type Mailer struct {
	client  SESAPI
	opts    Options
	enabled bool
}

// New returns a disabled mailer when opts.FromEmail is empty.
func New(ctx context.Context, opts Options) (*Mailer, error) {
	if opts.FromEmail == "" {
		middleware.Logger.Info("Email disabled: SES_FROM_EMAIL not configured")
		return &Mailer{opts: opts}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	middleware.Logger.Info("Email enabled", slog.String("from", opts.FromEmail), slog.String("region", opts.Region))
	return NewWithClient(sesv2.NewFromConfig(cfg), opts), nil
}

// NewWithClient wraps an existing SES client.
func NewWithClient(client SESAPI, opts Options) *Mailer {
	return &Mailer{client: client, opts: opts, enabled: client != nil && opts.FromEmail != ""}
}

// Enabled reports whether emails are actually sent.
func (m *Mailer) Enabled() bool {
	return m != nil && m.enabled
}

var announcementHTML = template.Must(template.New("announcement").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1 style="color: #6b46c1;">{{.FamilyName}}: {{.Title}}</h1>
		<p style="white-space: pre-wrap;">{{.Message}}</p>
		<p><a href="{{.Link}}">Open The Faithful City</a></p>
		<p style="font-size: 12px; color: #666;">You receive this because you are a member of {{.FamilyName}}.</p>
	</div>
</body>
</html>
`))

func (m *Mailer) fromAddress() string {
	if m.opts.FromName != "" {
		return fmt.Sprintf("%s <%s>", m.opts.FromName, m.opts.FromEmail)
	}
	return m.opts.FromEmail
}

// SendAnnouncement emails every recipient individually. Failures for single
// recipients are joined and returned after all sends were attempted.
func (m *Mailer) SendAnnouncement(ctx context.Context, to []Recipient, a Announcement) error {
	if !m.Enabled() {
		return nil
	}

	var html bytes.Buffer
	if err := announcementHTML.Execute(&html, struct {
		Announcement
		Link string
	}{a, m.opts.AppBaseURL}); err != nil {
		return fmt.Errorf("render announcement: %w", err)
	}
	text := fmt.Sprintf("%s: %s\n\n%s\n\n%s\n", a.FamilyName, a.Title, a.Message, m.opts.AppBaseURL)
	subject := fmt.Sprintf("[%s] %s", a.FamilyName, a.Title)

	ctx, span := observability.StartSpan(ctx, "mail", "announcement",
		attribute.Int("mail.recipients", len(to)))
	defer span.End()

	var errs []error
	for _, r := range to {
		if r.Email == "" {
			continue
		}
		if err := m.send(ctx, r.Email, subject, html.String(), text); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "some announcement emails failed")
		return err
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.fromAddress()),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	return nil
}
