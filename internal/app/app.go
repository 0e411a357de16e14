package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/cache"
	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/notify"
	sqliteadapter "github.com/atvirokodosprendimai/cabinetd/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/cabinetd/internal/catalog"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/usecase"
	"github.com/atvirokodosprendimai/cabinetd/migrations"
)

type Config struct {
	Addr              string
	DBPath            string
	RedisURL          string
	CacheTTL          time.Duration
	AuditMode         string
	AuditInterval     time.Duration
	AuditBatchSize    int
	DemoteFormerOwner bool
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func NewServer(ctx context.Context, cfg Config, log *logrus.Logger) (*http.Server, io.Closer, error) {
	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	store := sqliteadapter.NewStore(db)

	seedCtx, seedCancel := context.WithTimeout(ctx, 5*time.Second)
	err = catalog.Seed(seedCtx, store)
	seedCancel()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("seed permission catalog: %w", err)
	}

	var permCache ports.PermissionCache
	var cacheCloser io.Closer
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		permCache = redisCache
		cacheCloser = redisCache
	} else {
		permCache = cache.NewMemoryCache()
	}

	var auditLogger ports.AuditLogger
	var dispatcher *usecase.AuditDispatcher
	var dispatcherCloser io.Closer
	if cfg.AuditMode == "queued" {
		auditLogger = usecase.NewQueuedAuditLogger()
		dispatcher = usecase.NewAuditDispatcher(store, store, log, cfg.AuditInterval, cfg.AuditBatchSize)
		dispatcher.Start(context.Background())
		dispatcherCloser = dispatcher
	} else {
		auditLogger = usecase.NewDirectAuditLogger()
	}

	notifier := notify.NewMessageNotifier()

	cabinetService := usecase.NewCabinetService(store, store, auditLogger, permCache, usecase.CabinetServiceConfig{
		DemoteFormerOwner: cfg.DemoteFormerOwner,
	}, log)
	membershipService := usecase.NewMembershipService(store, store, auditLogger, permCache, log)
	auditService := usecase.NewAuditService(store)
	userService := usecase.NewUserService(store, store)
	deletionService := usecase.NewUserDeletionService(store, store, auditLogger, permCache, notifier, log)
	messageService := usecase.NewMessageService(store, store)

	handler := httpapi.NewHandler(cabinetService, membershipService, auditService, userService, deletionService, messageService, log)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{dispatcherCloser, cacheCloser, db}}, nil
}
