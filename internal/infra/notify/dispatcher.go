package notify

import (
	"context"
	"log"
)

// Dispatcher sends outbound security alerts. Dispatch is best-effort by
// contract: implementations must bound their own I/O, and callers never let
// a dispatch failure fail the primary operation.
type Dispatcher interface {
	SendSecurityAlert(ctx context.Context, userID, subject, body string) error
}

type logDispatcher struct {
	from string
}

// NewLogDispatcher returns a Dispatcher that writes alerts to the process
// log. The real email integration lives outside this layer; this keeps the
// alert path exercised in environments without a mail provider.
func NewLogDispatcher(from string) Dispatcher {
	return &logDispatcher{from: from}
}

func (d *logDispatcher) SendSecurityAlert(_ context.Context, userID, subject, body string) error {
	log.Printf("security alert (from=%s user=%s): %s: %s", d.from, userID, subject, body)
	return nil
}
