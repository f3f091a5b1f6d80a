package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"polymarket-edge/internal/alerting"
	"polymarket-edge/internal/config"
	"polymarket-edge/internal/model"
	"polymarket-edge/internal/scheduler"
	"polymarket-edge/internal/settings"
	"polymarket-edge/internal/storage"
	"polymarket-edge/internal/viewmodel"
)

// Service refreshes the opportunity list on a schedule, snapshots every
// fetch and alerts on records at or above the default EV threshold.
type Service struct {
	scheduler  *scheduler.Scheduler
	list       *viewmodel.List
	settings   *settings.Store
	snapshots  storage.SnapshotStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	channels   []string
	alertsOn   bool
	cooldown   time.Duration
	staleAfter time.Duration
	locker     storage.AdvisoryLocker
	lockKey    int64
	now        func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// New constructs the watch service. snapshots, alertStore and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, list *viewmodel.List, store *settings.Store, snapshots storage.SnapshotStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := snapshots.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		list:       list,
		settings:   store,
		snapshots:  snapshots,
		alertStore: alertStore,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		cooldown:   cfg.Watch.AlertCooldown,
		staleAfter: model.DefaultStaleAfter,
		locker:     locker,
		lockKey:    cfg.Watch.AdvisoryLockKey,
		now:        func() time.Time { return time.Now().UTC() },
		lastAlert:  make(map[string]time.Time),
	}
}

// Run begins the refresh loop. Settings are reloaded at the start of every
// tick; a changed refresh_interval reschedules the loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	unsubscribe := s.settings.Subscribe(s.onSettingsChange)
	defer unsubscribe()
	return s.scheduler.Run(ctx, s.ProcessTick)
}

func (s *Service) onSettingsChange(change settings.Change) {
	if change.Key != settings.KeyRefreshInterval || s.scheduler == nil {
		return
	}
	if err := s.scheduler.SetInterval(change.Values.RefreshInterval()); err != nil {
		s.logger.Error().Err(err).Msg("failed to apply refresh interval")
	}
}

// ProcessTick performs one refresh.
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip tick because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeTick(ctx, bucket)
}

func (s *Service) executeTick(ctx context.Context, bucket time.Time) error {
	// Settings may have been edited by another process since the last tick.
	if err := s.settings.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("keeping previous settings")
	}

	if err := s.list.Load(ctx); err != nil {
		return fmt.Errorf("load opportunities: %w", err)
	}
	items := s.list.All()

	if s.snapshots != nil {
		rows := make([]storage.Snapshot, 0, len(items))
		for _, opp := range items {
			rows = append(rows, storage.NewSnapshot(bucket, opp))
		}
		if err := s.snapshots.InsertSnapshots(ctx, rows); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to store snapshot")
		}
	}

	s.logger.Info().Time("bucket", bucket).Int("count", len(items)).Msg("opportunities refreshed")

	threshold := s.settings.DefaultEVPercent()
	if !s.alertsOn || s.notifier == nil || threshold <= 0 {
		return nil
	}

	now := s.now()
	candidates := viewmodel.FilterSort(items, viewmodel.Filter{MinEVPercent: threshold}, 0)
	for _, opp := range candidates {
		if opp.Stale(now, s.staleAfter) {
			s.logger.Debug().Str("opportunity_id", opp.ID).Msg("skip stale opportunity")
			continue
		}
		if s.coolingDown(ctx, opp.ID, now) {
			continue
		}
		s.alert(ctx, opp, threshold, now)
	}
	return nil
}

func (s *Service) alert(ctx context.Context, opp model.Opportunity, threshold float64, now time.Time) {
	note := alerting.Notification{
		ObservedAt:   now,
		Opportunity:  opp,
		EVPercent:    decimal.NewFromFloat(*opp.EVPercent),
		ThresholdPct: decimal.NewFromFloat(threshold),
		Channels:     s.channels,
	}

	s.mu.Lock()
	s.lastAlert[opp.ID] = now
	s.mu.Unlock()

	if s.alertStore != nil {
		record := storage.AlertRecord{
			OpportunityID: opp.ID,
			EVPercent:     note.EVPercent,
			ThresholdPct:  note.ThresholdPct,
			Channels:      s.channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("opportunity_id", opp.ID).Msg("failed to persist alert record")
		}
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("opportunity_id", opp.ID).Msg("failed to dispatch alert")
	}
}

// coolingDown consults the persisted alert log when one is reachable and the
// in-process map otherwise.
func (s *Service) coolingDown(ctx context.Context, id string, now time.Time) bool {
	if s.cooldown <= 0 {
		return false
	}
	if s.alertStore != nil {
		last, ok, err := s.alertStore.LastAlertAt(ctx, id)
		if err == nil {
			return ok && now.Sub(last) < s.cooldown
		}
		s.logger.Warn().Err(err).Str("opportunity_id", id).Msg("alert log unavailable, using in-process cooldown")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastAlert[id]
	return ok && now.Sub(last) < s.cooldown
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
