package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

func appendAudit(t *testing.T, root *Root, entry domain.AuditEntry) {
	t.Helper()
	err := root.InTx(context.Background(), func(s ports.Store) error {
		return s.Audit().Append(context.Background(), entry)
	})
	if err != nil {
		t.Fatalf("append audit entry: %v", err)
	}
}

func TestAuditRepositoryQueryFiltersAndPaginates(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	actorA := "user-a"
	actorB := "user-b"
	cabinetX := "cab-x"

	appendAudit(t, root, domain.AuditEntry{
		ActorID: &actorA, CabinetID: &cabinetX,
		SubjectType: domain.SubjectCabinet, SubjectID: cabinetX,
		Event: domain.EventCabinetCreated,
	})
	appendAudit(t, root, domain.AuditEntry{
		ActorID: &actorA, CabinetID: &cabinetX,
		SubjectType: domain.SubjectMembership, SubjectID: "m-1",
		Event:    domain.EventUserInvited,
		Metadata: map[string]any{"role": "manager"},
	})
	appendAudit(t, root, domain.AuditEntry{
		ActorID: &actorB, CabinetID: &cabinetX,
		SubjectType: domain.SubjectMembership, SubjectID: "m-2",
		Event: domain.EventUserInvited,
	})

	page, err := root.Audit().Query(ctx, domain.AuditFilter{UserID: actorA}, 10, 0)
	if err != nil {
		t.Fatalf("query by actor: %v", err)
	}
	if page.Total != 2 || len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries for actor, got total=%d len=%d", page.Total, len(page.Entries))
	}
	// Newest first.
	if page.Entries[0].Event != domain.EventUserInvited {
		t.Fatalf("expected newest entry first, got %s", page.Entries[0].Event)
	}
	if page.Entries[0].Metadata["role"] != "manager" {
		t.Fatalf("expected metadata round-trip, got %v", page.Entries[0].Metadata)
	}

	page, err = root.Audit().Query(ctx, domain.AuditFilter{Event: domain.EventUserInvited}, 1, 1)
	if err != nil {
		t.Fatalf("query paginated: %v", err)
	}
	if page.Total != 2 || len(page.Entries) != 1 {
		t.Fatalf("expected total=2 with 1 page entry, got total=%d len=%d", page.Total, len(page.Entries))
	}

	page, err = root.Audit().Query(ctx, domain.AuditFilter{From: time.Now().UTC().Add(time.Hour)}, 10, 0)
	if err != nil {
		t.Fatalf("query with future lower bound: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected no entries after future bound, got %d", page.Total)
	}
}

func TestAuditRepositoryStatistics(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	actorA := "user-a"
	actorB := "user-b"
	cabinetX := "cab-x"
	cabinetY := "cab-y"

	appendAudit(t, root, domain.AuditEntry{
		ActorID: &actorA, CabinetID: &cabinetX,
		SubjectType: domain.SubjectCabinet, SubjectID: cabinetX,
		Event: domain.EventCabinetCreated,
	})
	appendAudit(t, root, domain.AuditEntry{
		ActorID: &actorB, CabinetID: &cabinetY,
		SubjectType: domain.SubjectCabinet, SubjectID: cabinetY,
		Event: domain.EventCabinetCreated,
	})
	appendAudit(t, root, domain.AuditEntry{
		SubjectType: domain.SubjectUser, SubjectID: actorA,
		Event: domain.EventUserDeleted,
	})

	stats, err := root.Audit().Statistics(ctx, domain.AuditFilter{})
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.DistinctUsers != 2 {
		t.Fatalf("expected 2 distinct users, got %d", stats.DistinctUsers)
	}
	if stats.DistinctCabinets != 2 {
		t.Fatalf("expected 2 distinct cabinets, got %d", stats.DistinctCabinets)
	}
	if stats.EventCounts[domain.EventCabinetCreated] != 2 {
		t.Fatalf("expected 2 cabinet.created, got %d", stats.EventCounts[domain.EventCabinetCreated])
	}
	if stats.EventCounts[domain.EventUserDeleted] != 1 {
		t.Fatalf("expected 1 user.deleted, got %d", stats.EventCounts[domain.EventUserDeleted])
	}
}

func TestAuditRepositoryDeleteForUserKeepsSystemEntries(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	actor := "user-a"
	appendAudit(t, root, domain.AuditEntry{
		ActorID:     &actor,
		SubjectType: domain.SubjectCabinet, SubjectID: "cab-x",
		Event: domain.EventCabinetCreated,
	})
	appendAudit(t, root, domain.AuditEntry{
		SubjectType: domain.SubjectUser, SubjectID: actor,
		Event: domain.EventUserDeleted,
	})

	err := root.InTx(ctx, func(s ports.Store) error {
		return s.Audit().DeleteForUser(ctx, actor)
	})
	if err != nil {
		t.Fatalf("delete for user: %v", err)
	}

	entries, err := root.Audit().Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the system entry to remain, got %d", len(entries))
	}
	if entries[0].ActorID != nil {
		t.Fatalf("expected nil actor on surviving entry, got %v", *entries[0].ActorID)
	}
	if entries[0].Event != domain.EventUserDeleted {
		t.Fatalf("expected user.deleted to survive, got %s", entries[0].Event)
	}
}
