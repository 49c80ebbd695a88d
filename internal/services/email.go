package services

import (
	"context"
	"fmt"
	"log/slog"

	"schoolevents/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendParticipationDecision tells a student their request changed status, using the
// "participation_decision" template.
func (s *emailService) SendParticipationDecision(ctx context.Context, data *domain.ParticipationDecisionEmailData) error {
	if data == nil {
		return fmt.Errorf("participation decision data is nil")
	}
	if data.Email == "" {
		return fmt.Errorf("participation decision: student has no email address")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("participation_decision", data)
	if err != nil {
		return fmt.Errorf("failed to render participation_decision template: %w", err)
	}
	msg := domain.EmailMessage{
		To:      data.Email,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
		Tags:    map[string]string{"category": "participation_decision", "status": string(data.Status)},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send participation decision email: %w", err)
	}
	s.logger.InfoContext(ctx, "participation decision email sent", "to", data.Email, "status", data.Status)
	return nil
}
