package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	metadata := "{}"
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadata = string(encoded)
	}

	model := auditLogModel{
		UserID:      entry.ActorID,
		CabinetID:   entry.CabinetID,
		SubjectType: entry.SubjectType,
		SubjectID:   entry.SubjectID,
		Event:       entry.Event,
		Description: entry.Description,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Metadata:    metadata,
		CreatedAt:   entry.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, filter domain.AuditFilter, limit, offset int) (domain.AuditPage, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.AuditPage{}, fmt.Errorf("count audit entries: %w", err)
	}

	var models []auditLogModel
	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&models).Error
	if err != nil {
		return domain.AuditPage{}, fmt.Errorf("query audit entries: %w", err)
	}

	entries, err := toAuditEntries(models)
	if err != nil {
		return domain.AuditPage{}, err
	}
	return domain.AuditPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

func (r *AuditRepository) Statistics(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error) {
	stats := domain.AuditStats{EventCounts: map[string]int64{}}

	if err := r.filtered(ctx, filter).Count(&stats.Total).Error; err != nil {
		return domain.AuditStats{}, fmt.Errorf("count audit entries: %w", err)
	}
	err := r.filtered(ctx, filter).
		Distinct("user_id").Where("user_id IS NOT NULL").
		Count(&stats.DistinctUsers).Error
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count distinct users: %w", err)
	}
	err = r.filtered(ctx, filter).
		Distinct("cabinet_id").Where("cabinet_id IS NOT NULL").
		Count(&stats.DistinctCabinets).Error
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count distinct cabinets: %w", err)
	}

	type eventCount struct {
		Event string
		Count int64
	}
	var counts []eventCount
	err = r.filtered(ctx, filter).
		Select("event, COUNT(*) as count").
		Group("event").
		Scan(&counts).Error
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("count events: %w", err)
	}
	for _, c := range counts {
		stats.EventCounts[c.Event] = c.Count
	}
	return stats, nil
}

func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	var models []auditLogModel
	err := r.db.WithContext(ctx).Model(&auditLogModel{}).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("recent audit entries: %w", err)
	}
	return toAuditEntries(models)
}

func (r *AuditRepository) DeleteForUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&auditLogModel{}).Error
	if err != nil {
		return fmt.Errorf("delete audit entries for user: %w", err)
	}
	return nil
}

func (r *AuditRepository) filtered(ctx context.Context, filter domain.AuditFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&auditLogModel{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.CabinetID != "" {
		query = query.Where("cabinet_id = ?", filter.CabinetID)
	}
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.SubjectType != "" {
		query = query.Where("subject_type = ?", filter.SubjectType)
	}
	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}
	return query
}

func toAuditEntries(models []auditLogModel) ([]domain.AuditEntry, error) {
	result := make([]domain.AuditEntry, 0, len(models))
	for _, m := range models {
		entry := domain.AuditEntry{
			ID:          m.ID,
			ActorID:     m.UserID,
			CabinetID:   m.CabinetID,
			SubjectType: m.SubjectType,
			SubjectID:   m.SubjectID,
			Event:       m.Event,
			Description: m.Description,
			IPAddress:   m.IPAddress,
			UserAgent:   m.UserAgent,
			CreatedAt:   m.CreatedAt,
		}
		if m.Metadata != "" && m.Metadata != "{}" {
			if err := json.Unmarshal([]byte(m.Metadata), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata for entry %d: %w", m.ID, err)
			}
		}
		result = append(result, entry)
	}
	return result, nil
}
