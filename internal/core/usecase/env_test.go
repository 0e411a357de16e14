package usecase

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/cache"
	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/notify"
	sqliteadapter "github.com/atvirokodosprendimai/cabinetd/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/cabinetd/internal/catalog"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/migrations"
)

type testEnv struct {
	root     *sqliteadapter.Root
	cache    *cache.MemoryCache
	log      *logrus.Logger
	cabinets *CabinetService
	members  *MembershipService
	audit    *AuditService
	users    *UserService
	deletion *UserDeletionService
	messages *MessageService
}

func newTestEnv(t *testing.T, cfg CabinetServiceConfig) *testEnv {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gormsqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	writeDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(ctx, writeDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	root := sqliteadapter.NewStore(db)
	if err := catalog.Seed(ctx, root); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	permCache := cache.NewMemoryCache()
	auditLogger := NewDirectAuditLogger()
	notifier := notify.NewMessageNotifier()

	return &testEnv{
		root:     root,
		cache:    permCache,
		log:      log,
		cabinets: NewCabinetService(root, root, auditLogger, permCache, cfg, log),
		members:  NewMembershipService(root, root, auditLogger, permCache, log),
		audit:    NewAuditService(root),
		users:    NewUserService(root, root),
		deletion: NewUserDeletionService(root, root, auditLogger, permCache, notifier, log),
		messages: NewMessageService(root, root),
	}
}

func (e *testEnv) createUser(t *testing.T, name, phone string) domain.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), name, phone)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (e *testEnv) countAudit(t *testing.T, event string) int64 {
	t.Helper()
	page, err := e.audit.Query(context.Background(), domain.AuditFilter{Event: event}, 500, 0)
	if err != nil {
		t.Fatalf("query audit for %s: %v", event, err)
	}
	return page.Total
}

func (e *testEnv) ownerCount(t *testing.T, cabinetID string) int {
	t.Helper()
	members, err := e.root.Members().ListForCabinet(context.Background(), cabinetID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	count := 0
	for _, m := range members {
		if m.IsOwner {
			count++
		}
	}
	return count
}

func actorFor(user domain.User) domain.Actor {
	return domain.Actor{UserID: user.ID, IPAddress: "127.0.0.1", UserAgent: "test"}
}
