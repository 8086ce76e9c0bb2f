package service

import (
	"context"
	"log/slog"
)

// EmailSender is the outbound-email boundary (spec §6, §9 "Lazy imports ->
// feature flags": a compile-time interface with a runtime-selected
// implementation). Grounded on original_source's
// send_lawyer_response_email(user_email, lawyer_name, case_summary_url).
type EmailSender interface {
	SendLawyerResponseEmail(ctx context.Context, userEmail, lawyerName, caseSummaryURL string) error
}

// LoggingEmailSender is the development default: every secret is optional
// per spec §6, and email transport degrades to a no-op log line.
type LoggingEmailSender struct{}

func (LoggingEmailSender) SendLawyerResponseEmail(ctx context.Context, userEmail, lawyerName, caseSummaryURL string) error {
	slog.Info("email (no-op): lawyer response", "to", userEmail, "lawyer", lawyerName, "case_summary_url", caseSummaryURL)
	return nil
}
