package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storm-sync/shared/config"
	"storm-sync/shared/logging"
	"storm-sync/shared/monitoring"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrSkipped is wrapped by agents that decline a run, for example because the
// previous one is still in flight. A skip is not recorded as a failure.
var ErrSkipped = errors.New("run skipped")

// Metrics defines the common interface for agent metrics
type Metrics interface {
	// GetSummary returns a human-readable summary of the run
	GetSummary() string
}

// AgentEvents provides callbacks for monitoring agent execution
type AgentEvents struct {
	OnSuccess         func(metrics Metrics, duration time.Duration)
	OnPartialFailure  func(err error, duration time.Duration)
	OnCriticalFailure func(err error, duration time.Duration)
}

// Agent defines the interface that all agents must implement
type Agent interface {
	Name() string
	RunOnce(ctx context.Context, events *AgentEvents) error
	Initialize() error
}

// Scheduler runs an agent once at start and then on a fixed interval
type Scheduler struct {
	config  *config.Config
	monitor *monitoring.Monitor
	agent   Agent
	cron    *cron.Cron
	log     *zap.SugaredLogger
}

func New(cfg *config.Config, agent Agent) *Scheduler {
	cronLogger := cron.PrintfLogger(logging.StdLogger())

	return &Scheduler{
		config:  cfg,
		monitor: monitoring.NewMonitor(),
		agent:   agent,
		// Prevent overlapping runs: a tick that fires while the previous
		// iteration is still in flight is dropped.
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		log:  logging.Named("scheduler"),
	}
}

// scheduleSpec turns a poll interval into a cron descriptor
func scheduleSpec(interval time.Duration) string {
	if interval <= 0 {
		interval = time.Minute
	}
	return "@every " + interval.String()
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.agent.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	var conditions monitoring.ConditionsProvider
	if cp, ok := s.agent.(monitoring.ConditionsProvider); ok {
		conditions = cp
	}
	healthServer := monitoring.NewHealthServer(s.monitor, conditions, strconv.Itoa(s.config.Monitoring.HealthPort))
	healthServer.Start()

	spec := scheduleSpec(s.config.Poll.Interval)
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Errorf("Error running scheduled job for %s: %v", s.agent.Name(), err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	// First iteration runs immediately, before the first tick can fire
	if err := s.RunOnce(ctx); err != nil {
		s.log.Errorf("Error running initial job for %s: %v", s.agent.Name(), err)
	}

	s.log.Infof("Scheduler started for %s with schedule: %s", s.agent.Name(), spec)
	s.cron.Start()

	<-ctx.Done()
	s.log.Infof("Scheduler stopped for %s", s.agent.Name())
	<-s.cron.Stop().Done()
	if err := healthServer.Shutdown(); err != nil {
		s.log.Warnf("Health server shutdown: %v", err)
	}
	return ctx.Err()
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	agentName := s.agent.Name()

	s.log.Debugf("Starting %s run...", agentName)

	events := &AgentEvents{
		OnSuccess: func(metrics Metrics, duration time.Duration) {
			s.monitor.RecordSuccess(metrics.GetSummary(), duration)
		},
		OnPartialFailure: func(err error, duration time.Duration) {
			s.monitor.RecordPartialFailure(fmt.Errorf("%s partial failure: %w", agentName, err), duration)
		},
		OnCriticalFailure: func(err error, duration time.Duration) {
			s.monitor.RecordCriticalFailure(fmt.Errorf("%s critical failure: %w", agentName, err), duration)
		},
	}

	if err := s.agent.RunOnce(ctx, events); err != nil {
		if errors.Is(err, ErrSkipped) {
			s.log.Debugf("%s run skipped: %v", agentName, err)
			return nil
		}
		duration := time.Since(startTime)
		s.monitor.RecordCriticalFailure(fmt.Errorf("%s failed: %w", agentName, err), duration)
		return fmt.Errorf("%s run failed: %w", agentName, err)
	}

	return nil
}
