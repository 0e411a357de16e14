package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// AuditDispatcher drains the audit queue into the audit log. Each delivery
// moves one entry atomically (append + mark delivered in one transaction);
// a failing entry is retried with backoff up to maxRetry attempts and then
// dead-lettered, which is itself reported as an operational error.
type AuditDispatcher struct {
	tx        ports.Transactor
	store     ports.Store
	log       *logrus.Logger
	interval  time.Duration
	batchSize int
	maxRetry  int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	deliveredTotal atomic.Int64
	failedTotal    atomic.Int64
	deadTotal      atomic.Int64
}

type AuditDispatcherMetrics struct {
	DeliveredTotal int64
	FailedTotal    int64
	DeadTotal      int64
}

func NewAuditDispatcher(tx ports.Transactor, store ports.Store, log *logrus.Logger, interval time.Duration, batchSize int) *AuditDispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &AuditDispatcher{
		tx:        tx,
		store:     store,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
		maxRetry:  3,
	}
}

func (d *AuditDispatcher) Start(parent context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.wg.Add(1)
	go d.loop(ctx)
}

func (d *AuditDispatcher) Close() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *AuditDispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.DispatchBatch(ctx); err != nil {
			d.log.WithError(err).Error("audit dispatch batch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *AuditDispatcher) DispatchBatch(ctx context.Context) error {
	pending, err := d.store.Queue().FetchPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, queued := range pending {
		var entry domain.AuditEntry
		if err := json.Unmarshal(queued.Payload, &entry); err != nil {
			if markErr := d.markFailure(ctx, queued, fmt.Sprintf("decode payload: %v", err)); markErr != nil {
				return markErr
			}
			continue
		}

		err := d.tx.InTx(ctx, func(s ports.Store) error {
			if err := s.Audit().Append(ctx, entry); err != nil {
				return err
			}
			return s.Queue().MarkDelivered(ctx, queued.ID)
		})
		if err != nil {
			if markErr := d.markFailure(ctx, queued, err.Error()); markErr != nil {
				return markErr
			}
			continue
		}
		d.deliveredTotal.Add(1)
	}

	return nil
}

func (d *AuditDispatcher) markFailure(ctx context.Context, queued domain.QueuedAudit, errMsg string) error {
	attempts := queued.Attempts + 1
	if attempts >= d.maxRetry {
		err := d.tx.InTx(ctx, func(s ports.Store) error {
			return s.Queue().MarkDead(ctx, queued.ID, attempts, errMsg)
		})
		if err != nil {
			return err
		}
		d.deadTotal.Add(1)
		d.log.WithFields(logrus.Fields{
			"queue_id": queued.ID,
			"attempts": attempts,
			"error":    errMsg,
		}).Error("audit delivery exhausted, entry dead-lettered")
		return nil
	}
	next := time.Now().UTC().Add(backoffDuration(attempts))
	err := d.tx.InTx(ctx, func(s ports.Store) error {
		return s.Queue().MarkFailed(ctx, queued.ID, attempts, next, errMsg)
	})
	if err != nil {
		return err
	}
	d.failedTotal.Add(1)
	return nil
}

func (d *AuditDispatcher) Metrics() AuditDispatcherMetrics {
	return AuditDispatcherMetrics{
		DeliveredTotal: d.deliveredTotal.Load(),
		FailedTotal:    d.failedTotal.Load(),
		DeadTotal:      d.deadTotal.Load(),
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	d := time.Duration(attempt*attempt) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
