package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

func TestDeleteUserWithCascade(t *testing.T) {
	env := newTestEnv(t, CabinetServiceConfig{})
	ctx := context.Background()

	alice := env.createUser(t, "Alice", "+37060000001")
	bob := env.createUser(t, "Bob", "+37060000002")
	carol := env.createUser(t, "Carol", "+37060000003")
	dave := env.createUser(t, "Dave", "+37060000004")

	// Alice owns a cabinet with Bob and Carol; she is also an ordinary
	// member of Dave's cabinet.
	owned, err := env.cabinets.Create(ctx, actorFor(alice), "Ops", "")
	if err != nil {
		t.Fatalf("create owned cabinet: %v", err)
	}
	if _, err := env.cabinets.Invite(ctx, actorFor(alice), owned.ID, bob.Phone, domain.RoleManager); err != nil {
		t.Fatalf("invite bob: %v", err)
	}
	if _, err := env.cabinets.Invite(ctx, actorFor(alice), owned.ID, carol.Phone, domain.RoleOperator); err != nil {
		t.Fatalf("invite carol: %v", err)
	}

	foreign, err := env.cabinets.Create(ctx, actorFor(dave), "Planning", "")
	if err != nil {
		t.Fatalf("create foreign cabinet: %v", err)
	}
	if _, err := env.cabinets.Invite(ctx, actorFor(dave), foreign.ID, alice.Phone, domain.RoleOperator); err != nil {
		t.Fatalf("invite alice: %v", err)
	}

	result, err := env.deletion.DeleteUserWithCascade(ctx, alice.ID)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(result.DeletedCabinets) != 1 || result.DeletedCabinets[0].ID != owned.ID {
		t.Fatalf("expected only the owned cabinet deleted, got %+v", result.DeletedCabinets)
	}
	notified := append([]string(nil), result.NotifiedUserIDs...)
	sort.Strings(notified)
	want := []string{bob.ID, carol.ID}
	sort.Strings(want)
	if len(notified) != 2 || notified[0] != want[0] || notified[1] != want[1] {
		t.Fatalf("expected notified %v, got %v", want, notified)
	}

	if _, err := env.users.Get(ctx, alice.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected alice gone, got %v", err)
	}
	if _, err := env.cabinets.Get(ctx, owned.ID); !errors.Is(err, domain.ErrCabinetNotFound) {
		t.Fatalf("expected owned cabinet gone, got %v", err)
	}

	// Dave's cabinet survives but Alice's membership there is gone.
	members, err := env.cabinets.Members(ctx, foreign.ID)
	if err != nil {
		t.Fatalf("foreign members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != dave.ID {
		t.Fatalf("expected only dave in foreign cabinet, got %+v", members)
	}

	// Co-members were told why the cabinet vanished, inside the same commit.
	inbox, err := env.messages.ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("bob inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected 1 notification for bob, got %d", len(inbox))
	}

	// Alice's own audit rows are purged; the system-actor entries recording
	// the cascade survive with a null actor.
	page, err := env.audit.Query(ctx, domain.AuditFilter{UserID: alice.ID}, 100, 0)
	if err != nil {
		t.Fatalf("audit by alice: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected alice's audit rows purged, got %d", page.Total)
	}
	if got := env.countAudit(t, domain.EventUserDeleted); got != 1 {
		t.Fatalf("expected 1 user.deleted entry, got %d", got)
	}
	deleted, err := env.audit.Query(ctx, domain.AuditFilter{Event: domain.EventCabinetDeleted}, 100, 0)
	if err != nil {
		t.Fatalf("audit cabinet.deleted: %v", err)
	}
	if deleted.Total != 1 {
		t.Fatalf("expected 1 cabinet.deleted entry, got %d", deleted.Total)
	}
	if deleted.Entries[0].ActorID != nil {
		t.Fatal("cascade deletions must carry a null actor")
	}
}

func TestDeleteUserNotifiesEachCoMemberOnce(t *testing.T) {
	env := newTestEnv(t, CabinetServiceConfig{})
	ctx := context.Background()

	alice := env.createUser(t, "Alice", "+37060000001")
	bob := env.createUser(t, "Bob", "+37060000002")

	for _, name := range []string{"Ops", "Planning"} {
		cabinet, err := env.cabinets.Create(ctx, actorFor(alice), name, "")
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := env.cabinets.Invite(ctx, actorFor(alice), cabinet.ID, bob.Phone, domain.RoleOperator); err != nil {
			t.Fatalf("invite into %s: %v", name, err)
		}
	}

	result, err := env.deletion.DeleteUserWithCascade(ctx, alice.ID)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(result.NotifiedUserIDs) != 1 || result.NotifiedUserIDs[0] != bob.ID {
		t.Fatalf("expected bob counted once, got %v", result.NotifiedUserIDs)
	}

	// One message per deleted cabinet, each naming the cabinet it is about.
	inbox, err := env.messages.ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("bob inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 notifications for bob, got %d", len(inbox))
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, ports.Store, []string, string, string) error {
	return errors.New("notifier down")
}

func TestDeleteUserRollsBackWhenNotificationFails(t *testing.T) {
	env := newTestEnv(t, CabinetServiceConfig{})
	ctx := context.Background()

	deletion := NewUserDeletionService(env.root, env.root, NewDirectAuditLogger(), env.cache, failingNotifier{}, env.log)

	alice := env.createUser(t, "Alice", "+37060000001")
	bob := env.createUser(t, "Bob", "+37060000002")

	cabinet, err := env.cabinets.Create(ctx, actorFor(alice), "Ops", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.cabinets.Invite(ctx, actorFor(alice), cabinet.ID, bob.Phone, domain.RoleOperator); err != nil {
		t.Fatalf("invite: %v", err)
	}

	if _, err := deletion.DeleteUserWithCascade(ctx, alice.ID); err == nil {
		t.Fatal("expected cascade to fail")
	}

	// Nothing was deleted: the user, the cabinet and both memberships are
	// all still there.
	if _, err := env.users.Get(ctx, alice.ID); err != nil {
		t.Fatalf("alice must survive the rollback: %v", err)
	}
	if _, err := env.cabinets.Get(ctx, cabinet.ID); err != nil {
		t.Fatalf("cabinet must survive the rollback: %v", err)
	}
	members, err := env.cabinets.Members(ctx, cabinet.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected both memberships intact, got %d", len(members))
	}
	if got := env.countAudit(t, domain.EventUserDeleted); got != 0 {
		t.Fatalf("failed cascade must not audit user.deleted, got %d", got)
	}
}

func TestGetDeletionSummary(t *testing.T) {
	env := newTestEnv(t, CabinetServiceConfig{})
	ctx := context.Background()

	alice := env.createUser(t, "Alice", "+37060000001")
	bob := env.createUser(t, "Bob", "+37060000002")
	carol := env.createUser(t, "Carol", "+37060000003")

	first, err := env.cabinets.Create(ctx, actorFor(alice), "Ops", "")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := env.cabinets.Create(ctx, actorFor(alice), "Planning", "")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := env.cabinets.Invite(ctx, actorFor(alice), first.ID, bob.Phone, domain.RoleOperator); err != nil {
		t.Fatalf("invite bob: %v", err)
	}
	// Bob sits in both cabinets but must be reported once.
	if _, err := env.cabinets.Invite(ctx, actorFor(alice), second.ID, bob.Phone, domain.RoleOperator); err != nil {
		t.Fatalf("invite bob again: %v", err)
	}
	if _, err := env.cabinets.Invite(ctx, actorFor(alice), second.ID, carol.Phone, domain.RoleManager); err != nil {
		t.Fatalf("invite carol: %v", err)
	}

	summary, err := env.deletion.GetDeletionSummary(ctx, alice.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.User.ID != alice.ID {
		t.Fatalf("wrong user in summary: %+v", summary.User)
	}
	if len(summary.OwnedCabinets) != 2 {
		t.Fatalf("expected 2 owned cabinets, got %d", len(summary.OwnedCabinets))
	}
	if len(summary.AffectedUsers) != 2 {
		t.Fatalf("expected 2 affected users, got %+v", summary.AffectedUsers)
	}

	// A summary is a preview only.
	if _, err := env.users.Get(ctx, alice.ID); err != nil {
		t.Fatalf("summary must not mutate: %v", err)
	}
	if _, err := env.deletion.GetDeletionSummary(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
