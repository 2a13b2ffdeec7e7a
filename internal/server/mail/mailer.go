// Package mail sends transactional email. Only one message exists today:
// the signup verification link.
package mail

import "context"

// Mailer delivers a verification link to a freshly signed-up user. Delivery
// failures are reported to the caller but are not fatal for signup.
type Mailer interface {
	SendVerification(ctx context.Context, to, username, verificationURL string) error
}
