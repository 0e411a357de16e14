package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

func TestCabinetRepositoryLifecycle(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, root, "Ada", "+37060000001")
	cabinet := seedCabinet(t, root, owner.ID, "Ops")

	got, err := root.Cabinets().Get(ctx, cabinet.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Active {
		t.Fatal("expected new cabinet to be active")
	}
	if got.OwnerID != owner.ID {
		t.Fatalf("expected owner %s, got %s", owner.ID, got.OwnerID)
	}

	got.Name = "Ops renamed"
	got.Description = "after hours"
	err = root.InTx(ctx, func(s ports.Store) error {
		return s.Cabinets().Update(ctx, got)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, err := root.Cabinets().Get(ctx, cabinet.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.Name != "Ops renamed" || updated.Description != "after hours" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := root.Cabinets().Get(ctx, "missing"); !errors.Is(err, domain.ErrCabinetNotFound) {
		t.Fatalf("expected ErrCabinetNotFound, got %v", err)
	}
}

func TestCabinetRepositoryListForUserJoinsMemberships(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, root, "Ada", "+37060000001")
	member := seedUser(t, root, "Bo", "+37060000002")

	first := seedCabinet(t, root, owner.ID, "First")
	second := seedCabinet(t, root, owner.ID, "Second")
	seedMember(t, root, first.ID, owner.ID, domain.RoleAdmin, true)
	seedMember(t, root, second.ID, owner.ID, domain.RoleAdmin, true)
	seedMember(t, root, second.ID, member.ID, domain.RoleOperator, false)

	owned, err := root.Cabinets().ListOwnedBy(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 owned cabinets, got %d", len(owned))
	}

	visible, err := root.Cabinets().ListForUser(ctx, member.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != second.ID {
		t.Fatalf("expected only %s visible, got %+v", second.ID, visible)
	}
}

func TestCabinetRepositoryDeleteCascadesMemberships(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, root, "Ada", "+37060000001")
	cabinet := seedCabinet(t, root, owner.ID, "Ops")
	seedMember(t, root, cabinet.ID, owner.ID, domain.RoleAdmin, true)

	err := root.InTx(ctx, func(s ports.Store) error {
		return s.Cabinets().Delete(ctx, cabinet.ID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	members, err := root.Members().ListForCabinet(ctx, cabinet.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected memberships to cascade, found %d", len(members))
	}

	err = root.InTx(ctx, func(s ports.Store) error {
		return s.Cabinets().Delete(ctx, cabinet.ID)
	})
	if !errors.Is(err, domain.ErrCabinetNotFound) {
		t.Fatalf("expected ErrCabinetNotFound on second delete, got %v", err)
	}
}
