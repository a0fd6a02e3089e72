package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/inboxsage/inboxsage/app/database"
)

// mailSender is the slice of the Resend client the service needs.
type mailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Service delivers digest emails through Resend.
type Service struct {
	emails  mailSender
	from    string
	baseURL string
}

// NewService returns an error when apiKey is empty; a dispatcher without
// credentials must fail at startup, not at first send.
func NewService(apiKey, from, baseURL string) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("resend API key is required")
	}
	client := resend.NewClient(apiKey)
	return &Service{emails: client.Emails, from: from, baseURL: baseURL}, nil
}

// SendDigest renders and delivers a digest to a single recipient, returning
// the provider message ID.
func (s *Service) SendDigest(ctx context.Context, recipient string, digest *database.Digest, articles []database.Article, profile *database.Profile) (string, error) {
	html, err := renderDigest(s.baseURL, digest, articles, profile)
	if err != nil {
		return "", err
	}

	sent, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{recipient},
		Subject: digest.Title,
		Html:    html,
		Headers: map[string]string{
			"List-Unsubscribe":      fmt.Sprintf("<%s>", unsubscribeURL(s.baseURL, digest.UserID)),
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send digest email: %w", err)
	}

	slog.Info("Digest email sent", "recipient", recipient, "digest_id", digest.ID, "email_id", sent.Id)
	return sent.Id, nil
}

// SendTest delivers a minimal connectivity-test email.
func (s *Service) SendTest(ctx context.Context, recipient string) (string, error) {
	sent, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{recipient},
		Subject: "InboxSage test email",
		Html:    "<p>Your InboxSage email delivery is configured correctly.</p>",
	})
	if err != nil {
		return "", fmt.Errorf("failed to send test email: %w", err)
	}
	return sent.Id, nil
}
