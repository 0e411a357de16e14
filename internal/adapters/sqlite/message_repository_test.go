package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

func TestMessageRepositoryFanOutAndReadState(t *testing.T) {
	root := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, root, "Alice", "+37060000001")
	bob := seedUser(t, root, "Bob", "+37060000002")

	var msg domain.Message
	err := root.InTx(ctx, func(s ports.Store) error {
		var err error
		msg, err = s.Messages().Create(ctx, domain.Message{
			ID:    uuid.NewString(),
			Level: "warning",
			Title: "Cabinet deleted",
			Body:  "Cabinet \"Ops\" was deleted.",
		}, []string{alice.ID, bob.ID})
		return err
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	inbox, err := root.Messages().ListForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list for alice: %v", err)
	}
	if len(inbox) != 1 || inbox[0].ID != msg.ID {
		t.Fatalf("expected one message for alice, got %+v", inbox)
	}
	if inbox[0].ReadAt != nil {
		t.Fatal("fresh message must be unread")
	}

	err = root.InTx(ctx, func(s ports.Store) error {
		return s.Messages().MarkRead(ctx, msg.ID, alice.ID, inbox[0].CreatedAt.Add(1))
	})
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}

	inbox, err = root.Messages().ListForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list after read: %v", err)
	}
	if inbox[0].ReadAt == nil {
		t.Fatal("expected read_at to be set")
	}
	readAt := *inbox[0].ReadAt

	// Marking again must not move the original read timestamp.
	err = root.InTx(ctx, func(s ports.Store) error {
		return s.Messages().MarkRead(ctx, msg.ID, alice.ID, readAt.Add(1000))
	})
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	inbox, err = root.Messages().ListForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list after second read: %v", err)
	}
	if !inbox[0].ReadAt.Equal(readAt) {
		t.Fatalf("read_at moved from %v to %v", readAt, inbox[0].ReadAt)
	}

	// Bob's copy is independent and still unread.
	bobInbox, err := root.Messages().ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list for bob: %v", err)
	}
	if len(bobInbox) != 1 || bobInbox[0].ReadAt != nil {
		t.Fatalf("expected one unread message for bob, got %+v", bobInbox)
	}

	err = root.InTx(ctx, func(s ports.Store) error {
		return s.Messages().DeleteForUser(ctx, bob.ID)
	})
	if err != nil {
		t.Fatalf("delete for bob: %v", err)
	}
	bobInbox, err = root.Messages().ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list for bob after delete: %v", err)
	}
	if len(bobInbox) != 0 {
		t.Fatalf("expected bob's inbox to be empty, got %d", len(bobInbox))
	}
}
