// Package notify implements the notification hand-off consumed by the user
// deletion cascade. The persistent variant writes through the caller's
// transaction so the notification commits together with the deletion it
// announces.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

type MessageNotifier struct{}

func NewMessageNotifier() MessageNotifier { return MessageNotifier{} }

func (MessageNotifier) Notify(ctx context.Context, s ports.Store, userIDs []string, title, body string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := s.Messages().Create(ctx, domain.Message{
		ID:    uuid.NewString(),
		Level: "warning",
		Title: title,
		Body:  body,
	}, userIDs)
	return err
}

var _ ports.Notifier = MessageNotifier{}
