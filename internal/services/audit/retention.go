package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"erpcore/internal/metrics"
	"erpcore/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper deletes audit rows older than the retention window on a cron
// schedule. A zero retention keeps everything and the sweeper never starts.
type Sweeper struct {
	audit    store.AuditStore
	days     int
	schedule string
	lg       *zap.SugaredLogger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(a store.AuditStore, days int, schedule string, lg *zap.SugaredLogger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		audit:    a,
		days:     days,
		schedule: strings.TrimSpace(schedule),
		lg:       lg,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) Enabled() bool { return s.days > 0 }

func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Enabled() {
		s.lg.Infow("audit retention disabled, keeping all rows")
		return nil
	}
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.lg.Errorw("audit retention sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.lg.Infow("audit retention scheduled", "schedule", s.schedule, "retention_days", s.days)
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Sweep removes rows older than the cutoff and returns how many went.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -s.days)
	n, err := s.audit.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.AddAuditPurged(n)
	s.lg.Infow("audit retention sweep", "deleted", n, "cutoff", cutoff)
	return n, nil
}
