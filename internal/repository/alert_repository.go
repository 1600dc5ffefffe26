package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"optionscout/internal/domain"
)

// ErrNotFound is returned when a criteria record does not exist.
var ErrNotFound = errors.New("not found")

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const criteriaColumns = `id, user_id, name, enabled, strategies, min_roi, max_roi, min_pop,
	tickers, exclude_tickers, min_volume, min_open_interest, min_iv, max_iv,
	iv_rank_min, iv_rank_max, email_enabled, in_app_enabled, frequency, created_at, last_triggered`

// AlertRepository stores alert criteria and the alerts they raise.
type AlertRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAlertRepository(pool PgxPool, tracer trace.Tracer) *AlertRepository {
	return &AlertRepository{pool: pool, tracer: tracer}
}

func (r *AlertRepository) ListEnabledCriteria(ctx context.Context) ([]domain.AlertCriteria, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.list-enabled-criteria")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+criteriaColumns+`
		 FROM alert_criteria
		 WHERE enabled
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AlertCriteria
	for rows.Next() {
		c, err := scanCriteria(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *AlertRepository) GetCriteria(ctx context.Context, id string) (domain.AlertCriteria, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.get-criteria")
	defer span.End()

	row := r.pool.QueryRow(ctx, `SELECT `+criteriaColumns+` FROM alert_criteria WHERE id = $1`, id)
	c, err := scanCriteria(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AlertCriteria{}, fmt.Errorf("criteria %s: %w", id, ErrNotFound)
	}
	return c, err
}

func (r *AlertRepository) UpsertCriteria(ctx context.Context, c domain.AlertCriteria) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.upsert-criteria")
	defer span.End()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Frequency == "" {
		c.Frequency = domain.FrequencyImmediate
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO alert_criteria (`+criteriaColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     enabled = EXCLUDED.enabled,
		     strategies = EXCLUDED.strategies,
		     min_roi = EXCLUDED.min_roi,
		     max_roi = EXCLUDED.max_roi,
		     min_pop = EXCLUDED.min_pop,
		     tickers = EXCLUDED.tickers,
		     exclude_tickers = EXCLUDED.exclude_tickers,
		     min_volume = EXCLUDED.min_volume,
		     min_open_interest = EXCLUDED.min_open_interest,
		     min_iv = EXCLUDED.min_iv,
		     max_iv = EXCLUDED.max_iv,
		     iv_rank_min = EXCLUDED.iv_rank_min,
		     iv_rank_max = EXCLUDED.iv_rank_max,
		     email_enabled = EXCLUDED.email_enabled,
		     in_app_enabled = EXCLUDED.in_app_enabled,
		     frequency = EXCLUDED.frequency`,
		c.ID, c.UserID, c.Name, c.Enabled, nonNil(c.Strategies), c.MinROI, c.MaxROI, c.MinPoP,
		nonNil(c.Tickers), nonNil(c.ExcludeTickers), c.MinVolume, c.MinOpenInterest, c.MinIV, c.MaxIV,
		c.IVRankMin, c.IVRankMax, c.EmailEnabled, c.InAppEnabled, string(c.Frequency), c.CreatedAt, c.LastTriggered,
	)
	return err
}

func (r *AlertRepository) StampTriggered(ctx context.Context, criteriaID string, at time.Time) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.stamp-triggered")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `UPDATE alert_criteria SET last_triggered = $2 WHERE id = $1`, criteriaID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("criteria %s: %w", criteriaID, ErrNotFound)
	}
	return nil
}

func (r *AlertRepository) InsertAlert(ctx context.Context, a domain.Alert) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.insert-alert")
	defer span.End()

	snapshot, err := json.Marshal(a.Opportunity)
	if err != nil {
		return fmt.Errorf("encode alert snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO triggered_alerts
		     (id, user_id, criteria_id, criteria_name, opportunity, triggered_at, read, email_sent, in_app_sent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.CriteriaID, a.CriteriaName, snapshot, a.TriggeredAt, a.Read, a.EmailSent, a.InAppSent,
	)
	return err
}

// MarkInAppSent records that a saved alert reached the in-app channel.
func (r *AlertRepository) MarkInAppSent(ctx context.Context, alertID string) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.mark-in-app-sent")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `UPDATE triggered_alerts SET in_app_sent = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	return nil
}

func (r *AlertRepository) RecentAlerts(ctx context.Context, userID string, limit int) ([]domain.Alert, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.recent-alerts")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, criteria_id, criteria_name, opportunity, triggered_at, read, email_sent, in_app_sent
		 FROM triggered_alerts
		 WHERE user_id = $1
		 ORDER BY triggered_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var snapshot []byte
		var ts time.Time
		if err := rows.Scan(&a.ID, &a.UserID, &a.CriteriaID, &a.CriteriaName, &snapshot, &ts, &a.Read, &a.EmailSent, &a.InAppSent); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(snapshot, &a.Opportunity); err != nil {
			return nil, fmt.Errorf("decode alert %s snapshot: %w", a.ID, err)
		}
		a.TriggeredAt = ts.UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCriteria(row scanner) (domain.AlertCriteria, error) {
	var c domain.AlertCriteria
	var frequency string
	var lastTriggered *time.Time
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Enabled, &c.Strategies, &c.MinROI, &c.MaxROI, &c.MinPoP,
		&c.Tickers, &c.ExcludeTickers, &c.MinVolume, &c.MinOpenInterest, &c.MinIV, &c.MaxIV,
		&c.IVRankMin, &c.IVRankMax, &c.EmailEnabled, &c.InAppEnabled, &frequency, &c.CreatedAt, &lastTriggered,
	)
	if err != nil {
		return domain.AlertCriteria{}, err
	}
	c.Frequency = domain.Frequency(frequency)
	c.CreatedAt = c.CreatedAt.UTC()
	if lastTriggered != nil {
		ts := lastTriggered.UTC()
		c.LastTriggered = &ts
	}
	return c, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
