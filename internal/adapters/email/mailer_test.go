package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"schoolevents/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSESMailer_Send(t *testing.T) {
	ctx := context.Background()
	client := &fakeSES{}
	m := &sesMailer{client: client, source: `"School Events" <events@school.test>`, logger: discardLogger()}

	err := m.Send(ctx, domain.EmailMessage{
		To:      "s1@example.com",
		Subject: "Subject",
		HTML:    "<p>hi</p>",
		Tags:    map[string]string{"status": "APPROVED", "category": "participation_decision"},
	})
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, `"School Events" <events@school.test>`, aws.ToString(client.input.Source))
	assert.Equal(t, []string{"s1@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(client.input.Message.Subject.Data))
	require.NotNil(t, client.input.Message.Body.Html)
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Nil(t, client.input.Message.Body.Text)
	require.Len(t, client.input.Tags, 2)
	assert.Equal(t, "category", aws.ToString(client.input.Tags[0].Name))
	assert.Equal(t, "APPROVED", aws.ToString(client.input.Tags[1].Value))

	require.Error(t, m.Send(ctx, domain.EmailMessage{To: "s1@example.com", Subject: "empty"}), "a body is required")

	client.err = errors.New("throttled")
	err = m.Send(ctx, domain.EmailMessage{To: "s1@example.com", Subject: "Subject", Text: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewMailer(t *testing.T) {
	logger := discardLogger()

	tests := []struct {
		name     string
		config   MailerConfig
		wantType domain.Mailer
		wantErr  string
	}{
		{name: "noop", config: MailerConfig{Provider: "noop"}, wantType: &noopMailer{}},
		{name: "empty provider", config: MailerConfig{}, wantType: &noopMailer{}},
		{name: "unknown provider", config: MailerConfig{Provider: "carrier-pigeon"}, wantType: &noopMailer{}},
		{name: "ses without region", config: MailerConfig{Provider: "ses", FromAddress: "events@school.test"}, wantErr: "region is required"},
		{name: "ses without from", config: MailerConfig{Provider: "ses", SES: SESConfig{Region: "eu-west-1"}}, wantErr: "from address is required"},
		{name: "ses bad from", config: MailerConfig{Provider: "ses", FromAddress: "not an address", SES: SESConfig{Region: "eu-west-1"}}, wantErr: "invalid from address"},
		{
			name:     "ses",
			config:   MailerConfig{Provider: "ses", FromAddress: "events@school.test", FromName: "School Events", SES: SESConfig{Region: "eu-west-1", AccessKeyID: "AKIA", SecretAccessKey: "secret"}},
			wantType: &sesMailer{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMailer(tt.config, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, m)
		})
	}

	m, err := NewMailer(MailerConfig{Provider: "ses", FromAddress: "events@school.test", FromName: "School Events", SES: SESConfig{Region: "eu-west-1"}}, logger)
	require.NoError(t, err)
	assert.Equal(t, `"School Events" <events@school.test>`, m.(*sesMailer).source)

	require.NoError(t, (&noopMailer{logger: logger}).Send(context.Background(), domain.EmailMessage{To: "a@b.c", Subject: "s"}))
}
