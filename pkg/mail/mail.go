package mail

import "context"

// Message is a single outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	TextBody  string
}

// Mailer delivers messages to staff. Implementations must be safe for
// concurrent use; delivery failures are reported via the returned error
// and are the caller's to log or ignore.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
