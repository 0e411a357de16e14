package ports

import "context"

// PermissionCache caches the effective permission-name set per (user,
// cabinet). It is an optimization over the store only; invariant checks never
// consult it. Cache errors are reported so callers can log them, but a failed
// cache never fails the operation that touched it.
type PermissionCache interface {
	Get(ctx context.Context, userID, cabinetID string) ([]string, bool, error)
	Set(ctx context.Context, userID, cabinetID string, names []string) error
	Invalidate(ctx context.Context, userID, cabinetID string) error
}
