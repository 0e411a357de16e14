package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

type AuditService struct {
	store ports.Store
}

func NewAuditService(store ports.Store) *AuditService {
	return &AuditService{store: store}
}

func (s *AuditService) Query(ctx context.Context, filter domain.AuditFilter, limit, offset int) (domain.AuditPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Audit().Query(ctx, filter, limit, offset)
}

func (s *AuditService) Statistics(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error) {
	return s.store.Audit().Statistics(ctx, filter)
}

func (s *AuditService) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.store.Audit().Recent(ctx, limit)
}
