package usecase

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// MessageService serves the inbox side of persistent notifications. Writes
// happen through the notifier inside the mutating transactions; here we only
// list and flip read state.
type MessageService struct {
	tx    ports.Transactor
	store ports.Store
}

func NewMessageService(tx ports.Transactor, store ports.Store) *MessageService {
	return &MessageService{tx: tx, store: store}
}

func (s *MessageService) ListForUser(ctx context.Context, userID string) ([]domain.UserMessage, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Messages().ListForUser(ctx, userID)
}

func (s *MessageService) MarkRead(ctx context.Context, messageID, userID string) error {
	return s.tx.InTx(ctx, func(st ports.Store) error {
		return st.Messages().MarkRead(ctx, messageID, userID, time.Now().UTC())
	})
}
