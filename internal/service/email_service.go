package service

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sesAPI is the part of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// ConfirmationLine is one line of an order confirmation email
type ConfirmationLine struct {
	Name     string
	Quantity int
	Total    decimal.Decimal
}

// OrderConfirmation is the content of an order confirmation email
type OrderConfirmation struct {
	ToEmail       string
	ToName        string
	OrderID       int64
	Total         decimal.Decimal
	Lines         []ConfirmationLine
	ChildName     string
	Subscriptions int
}

// EmailService handles sending emails via Amazon SES. Without a sender
// address it is disabled and every send is a logged no-op.
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, logger), nil
}

func newEmailServiceWithClient(client sesAPI, fromEmail, fromName, appBaseURL string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

var welcomeHTML = htmltemplate.Must(htmltemplate.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Welcome!</h1>
	<p>Hi {{.Name}},</p>
	<p>Your account is ready. Add your children on the My Children page so you can assign them to subscriptions at checkout.</p>
	<p><a href="{{.BaseURL}}/my-children">Manage your children</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply.</p>
</body>
</html>`))

var welcomeText = template.Must(template.New("welcome").Parse(`Hi {{.Name}},

Your account is ready. Add your children on the My Children page so you can assign them to subscriptions at checkout.

Manage your children: {{.BaseURL}}/my-children

---
This is an automated email. Please do not reply.
`))

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		s.logger.Debug("skipping welcome email (service disabled)", zap.String("to", toEmail))
		return nil
	}

	data := struct{ Name, BaseURL string }{toName, s.appBaseURL}
	htmlBody, textBody, err := render(welcomeHTML, welcomeText, data)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, toEmail, "Welcome to Child Subscriptions", htmlBody, textBody)
}

var orderHTML = htmltemplate.Must(htmltemplate.New("order").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Thank you for your order</h1>
	<p>Hi {{.ToName}},</p>
	<p>We have received order #{{.OrderID}}.</p>
	<table>
	{{range .Lines}}<tr><td>{{.Name}} &times; {{.Quantity}}</td><td>{{.Total.StringFixed 2}}</td></tr>
	{{end}}<tr><th>Total</th><th>{{.Total.StringFixed 2}}</th></tr>
	</table>
	{{if .ChildName}}<p>Subscriptions in this order are assigned to <strong>{{.ChildName}}</strong>.</p>{{end}}
	{{if .Subscriptions}}<p>{{.Subscriptions}} subscription(s) started.</p>{{end}}
	<p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply.</p>
</body>
</html>`))

var orderText = template.Must(template.New("order").Parse(`Hi {{.ToName}},

We have received order #{{.OrderID}}.
{{range .Lines}}
- {{.Name}} x {{.Quantity}}: {{.Total.StringFixed 2}}{{end}}

Total: {{.Total.StringFixed 2}}
{{if .ChildName}}
Subscriptions in this order are assigned to {{.ChildName}}.
{{end}}{{if .Subscriptions}}
{{.Subscriptions}} subscription(s) started.
{{end}}
---
This is an automated email. Please do not reply.
`))

// SendOrderConfirmation emails the customer a summary naming the assigned child
func (s *EmailService) SendOrderConfirmation(ctx context.Context, c OrderConfirmation) error {
	if !s.enabled {
		s.logger.Debug("skipping order confirmation (service disabled)", zap.Int64("order_id", c.OrderID))
		return nil
	}
	if c.ToEmail == "" {
		return nil
	}

	htmlBody, textBody, err := render(orderHTML, orderText, c)
	if err != nil {
		return err
	}
	return s.sendEmail(ctx, c.ToEmail, fmt.Sprintf("Your order #%d", c.OrderID), htmlBody, textBody)
}

func render(h *htmltemplate.Template, t *template.Template, data interface{}) (string, string, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := h.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render email: %w", err)
	}
	if err := t.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to render email: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}
