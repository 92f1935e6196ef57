package services

import (
	"context"

	"git.solsynth.dev/hypernet/crosspost/pkg/internal/services/crosspost"
	"github.com/rs/zerolog/log"
)

// LogMailer hands notification emails to the log.
// Delivery itself belongs to the platform's mail service.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, email crosspost.Email) error {
	log.Info().
		Uint("account", email.AccountID).
		Str("to", email.To).
		Str("subject", email.Subject).
		Int("length", len(email.Body)).
		Msg("Delivered notification email.")
	return nil
}
