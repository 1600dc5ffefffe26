package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"optionscout/internal/domain"
)

// MaxAlertsPerCriteria bounds how many alerts one criteria record raises per pass.
const MaxAlertsPerCriteria = 5

type Store interface {
	InsertAlert(ctx context.Context, alert domain.Alert) error
	StampTriggered(ctx context.Context, criteriaID string, at time.Time) error
	MarkInAppSent(ctx context.Context, alertID string) error
}

// Notifier delivers an in-app alert.
type Notifier interface {
	Notify(ctx context.Context, alert domain.Alert) error
}

type Processor struct {
	store    Store
	notifier Notifier
	tracer   trace.Tracer
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewProcessor builds a processor. store and notifier may be nil, in which case
// alerts are neither persisted nor delivered.
func NewProcessor(store Store, notifier Notifier, tracer trace.Tracer, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		store:    store,
		notifier: notifier,
		tracer:   tracer,
		log:      log.Named("alerts"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Process evaluates every due criteria record against opportunities, which should be
// ordered best first. An alert is delivered only after it is saved, and a record's
// lastTriggered moves only when at least one of its alerts was saved. Failures for one
// record are joined into the returned error without stopping the others.
func (p *Processor) Process(ctx context.Context, opportunities []domain.Opportunity, criteria []domain.AlertCriteria) ([]domain.Alert, error) {
	ctx, span := p.tracer.Start(ctx, "alerts.process")
	defer span.End()
	span.SetAttributes(
		attribute.Int("opportunities", len(opportunities)),
		attribute.Int("criteria", len(criteria)),
	)

	now := p.now().UTC()
	var triggered []domain.Alert
	var errs []error

	for _, cr := range criteria {
		if !cr.Enabled || !Due(cr, now) {
			continue
		}
		matches := Filter(opportunities, cr)
		if len(matches) == 0 {
			continue
		}
		if len(matches) > MaxAlertsPerCriteria {
			matches = matches[:MaxAlertsPerCriteria]
		}

		saved := 0
		for _, opp := range matches {
			alert := p.newAlert(cr, opp, now)
			if p.store != nil {
				if err := p.store.InsertAlert(ctx, alert); err != nil {
					errs = append(errs, fmt.Errorf("insert alert for criteria %s: %w", cr.ID, err))
					continue
				}
			}
			saved++
			if cr.InAppEnabled && p.notifier != nil {
				if err := p.notifier.Notify(ctx, alert); err != nil {
					p.log.Warn("in-app delivery failed", zap.String("criteria_id", cr.ID), zap.Error(err))
				} else {
					alert.InAppSent = true
					p.markInAppSent(ctx, alert)
				}
			}
			triggered = append(triggered, alert)
		}
		if saved == 0 {
			continue
		}

		if p.store != nil {
			if err := p.store.StampTriggered(ctx, cr.ID, now); err != nil {
				errs = append(errs, fmt.Errorf("stamp criteria %s: %w", cr.ID, err))
			}
		}
		p.log.Info("criteria triggered",
			zap.String("criteria_id", cr.ID),
			zap.String("user_id", cr.UserID),
			zap.Int("matches", len(matches)),
			zap.Int("saved", saved),
		)
	}

	span.SetAttributes(attribute.Int("alerts", len(triggered)))
	return triggered, errors.Join(errs...)
}

func (p *Processor) markInAppSent(ctx context.Context, alert domain.Alert) {
	if p.store == nil {
		return
	}
	if err := p.store.MarkInAppSent(ctx, alert.ID); err != nil {
		p.log.Warn("mark in-app delivery failed", zap.String("alert_id", alert.ID), zap.Error(err))
	}
}

func (p *Processor) newAlert(cr domain.AlertCriteria, opp domain.Opportunity, now time.Time) domain.Alert {
	c := opp.Contract
	return domain.Alert{
		ID:           p.newID(),
		UserID:       cr.UserID,
		CriteriaID:   cr.ID,
		CriteriaName: cr.Name,
		Opportunity: domain.AlertSnapshot{
			Ticker:       c.Ticker,
			Underlying:   c.Underlying,
			Strategy:     c.Strategy,
			Strike:       c.Strike,
			Expiration:   c.Expiration,
			Premium:      c.Premium,
			ROI:          c.ROI,
			PoP:          c.PoP,
			IV:           c.Greeks.IV,
			Volume:       c.Volume,
			OpenInterest: c.OpenInterest,
			Score:        opp.Score.Overall,
		},
		TriggeredAt: now,
	}
}
