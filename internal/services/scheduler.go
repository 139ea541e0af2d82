package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/models"
	"github.com/finexa/fxarb/internal/store"
)

// Per-cycle processing caps. Detection can surface more candidates than the
// policies should act on in one second.
const (
	autonomousPerCycle = 3
	advisorPerCycle    = 5
)

// OpportunityCache receives the ranked list after every cycle, for external
// consumers reading through Redis. Failures are non-fatal.
type OpportunityCache interface {
	StoreOpportunities(ctx context.Context, opportunities []*models.ArbitrageOpportunity) error
}

// Broadcaster pushes the ranked list to connected websocket observers.
type Broadcaster interface {
	BroadcastOpportunities(opportunities []*models.ArbitrageOpportunity)
}

// Scheduler drives the periodic scan-detect-execute cycle. One cycle per
// interval; a cycle error backs off once and the loop continues. The loop
// never terminates on its own, only through Stop or context cancellation.
type Scheduler struct {
	rates     market.RateSource
	book      *Book
	store     store.Store
	executor  *Executor
	advisor   *Advisor
	governors *Governors
	notifier  *NotificationService
	cache     OpportunityCache
	hub       Broadcaster
	log       *logrus.Logger

	interval time.Duration
	backoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	running    bool
	lastCycle  time.Time
	cycleCount uint64
	lastError  string
}

// SchedulerStatus is the observable loop state for the health endpoint.
type SchedulerStatus struct {
	Running    bool      `json:"running"`
	LastCycle  time.Time `json:"last_cycle"`
	CycleCount uint64    `json:"cycle_count"`
	LastError  string    `json:"last_error,omitempty"`
}

func NewScheduler(
	rates market.RateSource,
	book *Book,
	s store.Store,
	executor *Executor,
	advisor *Advisor,
	governors *Governors,
	notifier *NotificationService,
	cache OpportunityCache,
	hub Broadcaster,
	interval, backoff time.Duration,
	log *logrus.Logger,
) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	return &Scheduler{
		rates:     rates,
		book:      book,
		store:     s,
		executor:  executor,
		advisor:   advisor,
		governors: governors,
		notifier:  notifier,
		cache:     cache,
		hub:       hub,
		interval:  interval,
		backoff:   backoff,
		log:       log,
	}
}

// Start launches the loop goroutine. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	s.log.WithField("interval", s.interval).Info("Scheduler started")
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// Status returns a copy of the loop state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SchedulerStatus{
		Running:    s.running,
		LastCycle:  s.lastCycle,
		CycleCount: s.cycleCount,
		LastError:  s.lastError,
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunCycle(s.ctx); err != nil {
				s.log.WithError(err).Error("Scan cycle failed, backing off")
				s.recordCycle(err)
				select {
				case <-s.ctx.Done():
					return
				case <-time.After(s.backoff):
				}
				continue
			}
			s.recordCycle(nil)
		}
	}
}

func (s *Scheduler) recordCycle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycle = time.Now().UTC()
	s.cycleCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
}

// RunCycle performs one full scan cycle: snapshot, detect, install the ranked
// list, feed caches and observers, then run both autonomous policies
// strictly sequentially. Exported so tests and manual triggers can drive the
// loop without the ticker.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	snapshot := s.rates.Snapshot()
	ranked := Detect(snapshot)
	s.book.Replace(ranked)

	current := s.book.Snapshot()
	if s.cache != nil {
		if err := s.cache.StoreOpportunities(ctx, current); err != nil {
			s.log.WithError(err).Warn("Failed to cache opportunities")
		}
	}

	if err := s.processAutonomousConfigs(ctx); err != nil {
		return err
	}
	if err := s.processAdvisorConfigs(ctx); err != nil {
		return err
	}

	// Observers see post-execution state, details included.
	final := s.book.Snapshot()
	if s.hub != nil {
		s.hub.BroadcastOpportunities(final)
	}
	if s.notifier != nil {
		s.notifier.NotifyOpportunities(ctx, final)
	}
	return nil
}

// processAutonomousConfigs runs the autonomous policy for every auto-execute
// config in autonomous mode. The governor gate is re-derived before every
// single execution, so a limit of one trade per hour stops the second
// candidate within the same cycle.
func (s *Scheduler) processAutonomousConfigs(ctx context.Context) error {
	configs, err := s.store.ConfigsByMode(ctx, models.ModeAutonomous)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		eligible := filterEligible(s.book.Snapshot(), cfg, AutonomousEligible)
		if len(eligible) > autonomousPerCycle {
			eligible = eligible[:autonomousPerCycle]
		}

		for _, opp := range eligible {
			gate, err := s.governors.AutonomousGate(ctx, cfg, time.Now().UTC())
			if err != nil {
				s.log.WithError(err).WithField("config_id", cfg.ID).Warn("Autonomous gate query failed")
				break
			}
			if gate.Suspended() {
				s.log.WithFields(logrus.Fields{
					"config_id":        cfg.ID,
					"daily_loss_hit":   gate.DailyLossLimitHit,
					"hourly_limit_hit": gate.HourlyLimitHit,
				}).Debug("Autonomous trading suspended")
				break
			}

			if cfg.Autonomous.AdvisorConfirmation {
				assessment := s.advisor.AssessRisk(ctx, opp)
				if !ConfirmsExecution(assessment) {
					s.log.WithFields(logrus.Fields{
						"config_id":      cfg.ID,
						"opportunity_id": opp.ID,
					}).Info("Advisor did not confirm autonomous trade, skipping")
					continue
				}
			}

			if _, err := s.executor.ExecuteAutonomous(ctx, opp.ID, cfg); err != nil {
				if errors.Is(err, ErrAlreadyExecuted) || errors.Is(err, ErrOpportunityNotFound) {
					continue
				}
				s.log.WithError(err).WithFields(logrus.Fields{
					"config_id":      cfg.ID,
					"opportunity_id": opp.ID,
				}).Error("Autonomous execution failed")
			}
		}
	}
	return nil
}

// processAdvisorConfigs runs the advisory-assisted policy: the top candidates
// go to the advisor one at a time and only explicit execute decisions trade.
func (s *Scheduler) processAdvisorConfigs(ctx context.Context) error {
	configs, err := s.store.ConfigsByMode(ctx, models.ModeAdvisorAssisted)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		eligible := filterEligible(s.book.Snapshot(), cfg, AdvisorEligible)
		if len(eligible) > advisorPerCycle {
			eligible = eligible[:advisorPerCycle]
		}

		for _, opp := range eligible {
			now := time.Now().UTC()
			gate, err := s.governors.AdvisorGate(ctx, cfg, now)
			if err != nil {
				s.log.WithError(err).WithField("config_id", cfg.ID).Warn("Advisor gate query failed")
				break
			}
			if gate.Suspended() {
				s.log.WithFields(logrus.Fields{
					"config_id":            cfg.ID,
					"session_limit_hit":    gate.SessionLimitHit,
					"trading_hours_active": gate.TradingHoursActive,
					"concurrent_limit_hit": gate.ConcurrentLimitHit,
				}).Debug("Advisor trading suspended")
				break
			}

			decision := s.advisor.TradeDecision(ctx, opp, cfg, now)
			if decision.Decision != DecisionExecute {
				s.log.WithFields(logrus.Fields{
					"config_id":      cfg.ID,
					"opportunity_id": opp.ID,
					"reasoning":      decision.Reasoning,
				}).Debug("Advisor skipped opportunity")
				continue
			}

			if _, err := s.executor.ExecuteAdvisorAssisted(ctx, opp.ID, cfg, decision, true); err != nil {
				if errors.Is(err, ErrAlreadyExecuted) || errors.Is(err, ErrOpportunityNotFound) {
					continue
				}
				s.log.WithError(err).WithFields(logrus.Fields{
					"config_id":      cfg.ID,
					"opportunity_id": opp.ID,
				}).Error("Advisor-assisted execution failed")
			}
		}
	}
	return nil
}
