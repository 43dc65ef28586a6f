package client

import "context"

// Notification is raised when a request fails before an HTTP response could
// be read (connection refused, timeout, malformed body).
type Notification struct {
	Title     string
	Message   string
	Method    string
	Path      string
	RequestID string
}

// Notifier surfaces a failure to the user. It is injected into the
// transport; the transport never talks to a UI directly.
type Notifier func(ctx context.Context, n Notification)

func nopNotifier(context.Context, Notification) {}
