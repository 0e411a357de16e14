package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// LogNotifier only records the hand-off. Useful when the messaging subsystem
// runs elsewhere and this instance must not write message rows.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, _ ports.Store, userIDs []string, title, _ string) error {
	n.log.WithFields(logrus.Fields{
		"recipients": len(userIDs),
		"title":      title,
	}).Info("notification hand-off")
	return nil
}

var _ ports.Notifier = (*LogNotifier)(nil)
