package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type AuditQueueRepository struct {
	db *gorm.DB
}

func (r *AuditQueueRepository) Enqueue(ctx context.Context, payload []byte) error {
	now := time.Now().UTC()
	model := auditQueueModel{
		Payload:       string(payload),
		Status:        domain.QueueStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("enqueue audit entry: %w", err)
	}
	return nil
}

func (r *AuditQueueRepository) FetchPending(ctx context.Context, limit int) ([]domain.QueuedAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []auditQueueModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", domain.QueueStatusPending, time.Now().UTC()).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("fetch pending audit queue: %w", err)
	}

	result := make([]domain.QueuedAudit, 0, len(models))
	for _, m := range models {
		result = append(result, domain.QueuedAudit{
			ID:            m.ID,
			Payload:       []byte(m.Payload),
			Status:        m.Status,
			Attempts:      m.Attempts,
			NextAttemptAt: m.NextAttemptAt,
			LastError:     m.LastError,
			CreatedAt:     m.CreatedAt,
			DeliveredAt:   m.DeliveredAt,
		})
	}
	return result, nil
}

func (r *AuditQueueRepository) MarkDelivered(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&auditQueueModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.QueueStatusDelivered,
			"delivered_at": &now,
			"last_error":   "",
		}).Error
	if err != nil {
		return fmt.Errorf("mark audit delivered: %w", err)
	}
	return nil
}

func (r *AuditQueueRepository) MarkFailed(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string) error {
	err := r.db.WithContext(ctx).Model(&auditQueueModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        attempts,
			"next_attempt_at": nextAttempt,
			"last_error":      lastError,
		}).Error
	if err != nil {
		return fmt.Errorf("mark audit failed: %w", err)
	}
	return nil
}

func (r *AuditQueueRepository) MarkDead(ctx context.Context, id int64, attempts int, lastError string) error {
	err := r.db.WithContext(ctx).Model(&auditQueueModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.QueueStatusDead,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
	if err != nil {
		return fmt.Errorf("mark audit dead: %w", err)
	}
	return nil
}
