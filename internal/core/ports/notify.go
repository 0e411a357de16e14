package ports

import "context"

// Notifier delivers one notification to a set of users. The messaging
// subsystem owns its own storage and read state; this core only hands off.
type Notifier interface {
	Notify(ctx context.Context, s Store, userIDs []string, title, body string) error
}
