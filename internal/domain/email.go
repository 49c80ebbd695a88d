package domain

import "context"

// EmailMessage is one outbound email. Tags are passed to the provider for delivery tracking.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ParticipationDecisionEmailData holds data for the email sent when a request changes status.
type ParticipationDecisionEmailData struct {
	Email           string
	StudentName     string
	EventTitle      string
	EventDate       string
	Status          RequestStatus
	RejectionReason string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendParticipationDecision(ctx context.Context, data *ParticipationDecisionEmailData) error
}
