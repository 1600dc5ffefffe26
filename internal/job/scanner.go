package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"optionscout/internal/domain"
	"optionscout/internal/provider"
)

type OpportunitySource interface {
	TopOpportunities(ctx context.Context, symbols []string, contractType domain.ContractType, maxDTE, limit, minScore int) ([]domain.Opportunity, error)
}

type CriteriaLister interface {
	ListEnabledCriteria(ctx context.Context) ([]domain.AlertCriteria, error)
}

type AlertProcessor interface {
	Process(ctx context.Context, opportunities []domain.Opportunity, criteria []domain.AlertCriteria) ([]domain.Alert, error)
}

type ScannerOptions struct {
	Schedule     string
	Symbols      []string
	ContractType domain.ContractType
	MinScore     int
	Timeout      time.Duration
}

// Scanner periodically scans a watchlist and feeds the results to the alert processor.
type Scanner struct {
	tracer    trace.Tracer
	source    OpportunitySource
	criteria  CriteriaLister
	processor AlertProcessor
	opts      ScannerOptions
	log       *zap.Logger
}

func NewScanner(tracer trace.Tracer, source OpportunitySource, criteria CriteriaLister, processor AlertProcessor, opts ScannerOptions, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ContractType == "" {
		opts.ContractType = domain.ContractPut
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &Scanner{
		tracer:    tracer,
		source:    source,
		criteria:  criteria,
		processor: processor,
		opts:      opts,
		log:       log.Named("scanner"),
	}
}

// Start schedules scans on the cron expression (seconds field included) and blocks
// until ctx is cancelled. A scan that overruns its slot makes the next one skip.
func (s *Scanner) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.opts.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid scanner schedule %q: %w", s.opts.Schedule, err)
	}

	s.log.Info("scanner starting",
		zap.String("schedule", s.opts.Schedule),
		zap.Strings("symbols", s.opts.Symbols),
	)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scanner stopped")
	return nil
}

// RunOnce performs a single scan and returns the alerts it triggered.
func (s *Scanner) RunOnce(ctx context.Context) []domain.Alert {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "scanner.run-once")
	defer span.End()

	start := time.Now()
	opps, err := s.source.TopOpportunities(ctx, s.opts.Symbols, s.opts.ContractType, 0, 0, s.opts.MinScore)
	if err != nil {
		if coe, ok := provider.IsCircuitOpen(err); ok {
			s.log.Warn("scan cut short by open circuit",
				zap.Duration("retry_after", coe.RetryAfter),
				zap.Int("collected", len(opps)),
			)
		} else {
			s.log.Error("scan failed", zap.Error(err))
			if len(opps) == 0 {
				return nil
			}
		}
	}
	span.SetAttributes(attribute.Int("opportunities", len(opps)))

	if s.criteria == nil || s.processor == nil || len(opps) == 0 {
		s.log.Info("scan complete", zap.Int("opportunities", len(opps)), zap.Duration("took", time.Since(start)))
		return nil
	}

	criteria, err := s.criteria.ListEnabledCriteria(ctx)
	if err != nil {
		s.log.Error("load alert criteria", zap.Error(err))
		return nil
	}

	alerts, err := s.processor.Process(ctx, opps, criteria)
	if err != nil {
		s.log.Error("alert processing errors", zap.Error(err))
	}
	span.SetAttributes(attribute.Int("alerts", len(alerts)))
	s.log.Info("scan complete",
		zap.Int("opportunities", len(opps)),
		zap.Int("criteria", len(criteria)),
		zap.Int("alerts", len(alerts)),
		zap.Duration("took", time.Since(start)),
	)
	return alerts
}
