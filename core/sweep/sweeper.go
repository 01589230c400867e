package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"incidentdeck/config"
	"incidentdeck/core/store"
	"incidentdeck/core/utils"
)

// Sweeper periodically deletes post rows that never received a status-post
// link. The non-transactional write path can leave such rows behind when the
// link insert fails after the post insert succeeded.
type Sweeper struct {
	cfg    config.SweepConfig
	runs   store.RunsStore
	logger *utils.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(cfg config.SweepConfig, runs store.RunsStore, logger *utils.Logger) *Sweeper {
	return &Sweeper{cfg: cfg, runs: runs, logger: logger}
}

func (s *Sweeper) Start() error {
	if s == nil || !s.cfg.Enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(context.Background(), time.Now().UTC()); err != nil {
			s.logger.Errorf("orphan post sweep: %v", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Printf("orphan post sweeper started, schedule %q", s.cfg.Schedule)
	return nil
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// RunOnce prunes posts older than the configured TTL as of now.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (int64, error) {
	ttl := s.cfg.OrphanTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	pruned, err := s.runs.PruneOrphanPosts(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.logger.Printf("pruned %d orphaned post rows", pruned)
	}
	return pruned, nil
}
