package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-quota/internal/quota"
)

// UsageSource is the read side of the access ledger.
type UsageSource interface {
	Total() int64
	Clients() int
}

// UsageSink receives periodic usage figures.
type UsageSink interface {
	UpdateUsage(total int64, usage float64)
	UpdateClients(n int)
}

// Scheduler periodically reports quota usage.
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    UsageSource
	monitor   quota.Monitor
	sink      UsageSink
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. sink may be nil.
func New(source UsageSource, monitor quota.Monitor, sink UsageSink, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		source:    source,
		monitor:   monitor,
		sink:      sink,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the report job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		s.Report()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Report publishes the current usage once and returns the advisory it logged.
func (s *Scheduler) Report() quota.Advisory {
	total := s.source.Total()
	clients := s.source.Clients()
	advisory := s.monitor.Evaluate(total)

	if s.sink != nil {
		s.sink.UpdateUsage(total, s.monitor.Usage(total))
		s.sink.UpdateClients(clients)
	}

	attrs := []any{
		"total", total,
		"clients", clients,
		"hard_limit", s.monitor.HardLimit,
		"advisory", advisory.Level,
	}
	if advisory.Level == quota.LevelOK {
		s.logger.Info("scheduler: quota usage", attrs...)
	} else {
		s.logger.Warn("scheduler: quota usage", attrs...)
	}
	return advisory
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
