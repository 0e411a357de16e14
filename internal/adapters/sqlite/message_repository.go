package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type MessageRepository struct {
	db *gorm.DB
}

func (r *MessageRepository) Create(ctx context.Context, msg domain.Message, recipientIDs []string) (domain.Message, error) {
	model := messageModel{
		ID:        msg.ID,
		Level:     msg.Level,
		Title:     msg.Title,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if len(recipientIDs) > 0 {
		rows := make([]messageRecipientModel, 0, len(recipientIDs))
		for _, userID := range recipientIDs {
			rows = append(rows, messageRecipientModel{MessageID: model.ID, UserID: userID})
		}
		if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
			return domain.Message{}, fmt.Errorf("insert message recipients: %w", err)
		}
	}

	msg.CreatedAt = model.CreatedAt
	return msg, nil
}

func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]domain.UserMessage, error) {
	type row struct {
		messageModel
		ReadAt *time.Time
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&messageModel{}).
		Select("messages.*, message_recipients.read_at").
		Joins("JOIN message_recipients ON message_recipients.message_id = messages.id").
		Where("message_recipients.user_id = ?", userID).
		Order("messages.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for user: %w", err)
	}

	result := make([]domain.UserMessage, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.UserMessage{
			Message: domain.Message{
				ID:        m.ID,
				Level:     m.Level,
				Title:     m.Title,
				Body:      m.Body,
				CreatedAt: m.CreatedAt,
			},
			ReadAt: m.ReadAt,
		})
	}
	return result, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, messageID, userID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&messageRecipientModel{}).
		Where("message_id = ? AND user_id = ? AND read_at IS NULL", messageID, userID).
		Update("read_at", at)
	if res.Error != nil {
		return fmt.Errorf("mark message read: %w", res.Error)
	}
	return nil
}

func (r *MessageRepository) DeleteForUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&messageRecipientModel{}).Error
	if err != nil {
		return fmt.Errorf("delete message read state for user: %w", err)
	}
	return nil
}
