package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/logger"
	"github.com/crapthings/storyboard/internal/models"
	"github.com/crapthings/storyboard/internal/websocket"
)

// Publisher pushes events to storyboard subscribers.
type Publisher interface {
	Publish(topic, eventType string, payload any)
}

// Scheduler runs periodic housekeeping. Its one job is failing assets whose
// generation never reported back, so rows do not spin forever after a crash
// or a lost provider callback.
type Scheduler struct {
	cron      *cron.Cron
	db        *database.DB
	publisher Publisher
	staleAge  time.Duration
	spec      string

	mu      sync.Mutex
	running bool
}

func New(db *database.DB, publisher Publisher, staleAge time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		db:        db,
		publisher: publisher,
		staleAge:  staleAge,
		spec:      "@every 1m",
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	logger.Success("Scheduler started (stale after %s)", s.staleAge)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Success("Scheduler stopped")
}

func (s *Scheduler) sweep() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.SweepNow(ctx); err != nil {
		logger.Error("Stale asset sweep failed: %v", err)
	}
}

// SweepNow fails every asset stuck in pending or processing for longer than
// the stale age, then refreshes stats and notifies subscribers.
func (s *Scheduler) SweepNow(ctx context.Context) (int, error) {
	stale, err := s.db.SweepStaleAssets(ctx, time.Now().Add(-s.staleAge))
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	logger.Warn("Marked %d stale asset(s) as failed", len(stale))

	type shotKey struct{ storyboard, shot string }
	touched := map[shotKey]bool{}
	for i := range stale {
		a := &stale[i]
		touched[shotKey{a.StoryboardID, a.ShotID}] = true
		s.publish(a.StoryboardID, websocket.EventAssetUpdated, models.WSAssetEvent{
			StoryboardID: a.StoryboardID,
			ShotID:       a.ShotID,
			RowID:        a.RowID,
			Asset:        a,
		})
	}
	for k := range touched {
		shotStats, sbStats, err := s.db.RecomputeStats(ctx, k.storyboard, k.shot)
		if err != nil {
			logger.Error("Recompute stats for shot %s: %v", k.shot, err)
			continue
		}
		s.publish(k.storyboard, websocket.EventStatsUpdated, models.WSStatsUpdated{
			StoryboardID:    k.storyboard,
			ShotID:          k.shot,
			ShotStats:       shotStats,
			StoryboardStats: sbStats,
		})
	}
	return len(stale), nil
}

func (s *Scheduler) publish(storyboardID, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(websocket.StoryboardTopic(storyboardID), eventType, payload)
}
