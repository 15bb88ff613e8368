package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-quota/internal/identity"
	"github.com/i474232898/weather-quota/internal/quota"
)

// Service runs one forecast query end to end: access accounting, admission
// control, fetch and summary.
type Service struct {
	ledger   Ledger
	monitor  quota.Monitor
	fetcher  Fetcher
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service.
func NewService(ledger Ledger, monitor quota.Monitor, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		ledger:   ledger,
		monitor:  monitor,
		fetcher:  fetcher,
		recorder: noopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle answers a single forecast query for place on behalf of the caller
// described by md. Every call is counted against the quota, including refused
// ones. Failures never escape: they resolve to an empty QueryResult.
func (s *Service) Handle(ctx context.Context, place *string, md identity.Metadata) QueryResult {
	queryID := uuid.NewString()
	clientID := identity.Resolve(md)

	s.ledger.Record(clientID)
	total := s.ledger.Total()
	advisory := s.monitor.Evaluate(total)
	s.recorder.UpdateUsage(total, s.monitor.Usage(total))

	log := s.logger.With("query_id", queryID, "client", clientID)
	log.Debug("access recorded", "count", s.ledger.Count(clientID), "total", total, "advisory", advisory.Level)

	if advisory.Blocked() {
		log.Warn("query refused", "error", ErrQuotaExceeded, "total", total, "hard_limit", s.monitor.HardLimit)
		return s.finish(emptyResult(advisory, OutcomeQuotaExceeded))
	}

	var p string
	if place != nil {
		p = *place
	}

	start := time.Now()
	forecast, err := s.fetch(ctx, p)
	outcome := Classify(err)
	s.recorder.ObserveFetch(string(outcome), time.Since(start).Seconds())

	switch outcome {
	case OutcomeOK:
	case OutcomeInvalidInput:
		log.Info("query skipped", "outcome", outcome, "error", err)
		return s.finish(emptyResult(advisory, outcome))
	case OutcomeUpstream, OutcomeMalformed:
		log.Warn("forecast fetch failed", "place", p, "outcome", outcome, "error", err)
		return s.finish(emptyResult(advisory, outcome))
	default:
		log.Error("something went wrong", "place", p, "outcome", outcome, "error", err)
		return s.finish(emptyResult(advisory, OutcomeUnexpected))
	}

	loc := forecast.Location
	return s.finish(QueryResult{
		Series:   forecast.Series,
		Location: &loc,
		Advisory: advisory,
		Extremes: ComputeExtremes(forecast.Series),
		Outcome:  OutcomeOK,
	})
}

// fetch calls the fetcher, converting a panic into an error and guarding
// against an empty series reported as success.
func (s *Service) fetch(ctx context.Context, place string) (f Forecast, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panicked: %v", r)
		}
	}()

	f, err = s.fetcher.Fetch(ctx, place)
	if err != nil {
		return Forecast{}, err
	}
	if len(f.Series) == 0 {
		return Forecast{}, fmt.Errorf("%w: empty forecast series", ErrMalformedResponse)
	}
	return f, nil
}

func (s *Service) finish(r QueryResult) QueryResult {
	s.recorder.RecordQuery(string(r.Outcome), string(r.Advisory.Level))
	return r
}

// Usage describes the current state of the access quota.
type Usage struct {
	Total     int64          `json:"total"`
	Clients   int            `json:"clients"`
	HardLimit int64          `json:"hardLimit"`
	Advisory  quota.Advisory `json:"advisory"`
}

// Usage reports the current totals without recording an access.
func (s *Service) Usage() Usage {
	total := s.ledger.Total()
	return Usage{
		Total:     total,
		Clients:   s.ledger.Clients(),
		HardLimit: s.monitor.HardLimit,
		Advisory:  s.monitor.Evaluate(total),
	}
}
