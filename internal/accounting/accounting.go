package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eaobservatory/omp/internal/queue"
)

// Accountant consumes MSB activity events and maintains per-night time
// accounting: an accept or complete adds the MSB's observed seconds to the
// project's total for the UT date, an undo subtracts them.
type Accountant struct {
	db     *pgxpool.Pool
	q      *queue.Queue
	logger *zap.Logger
}

// New creates an Accountant.
func New(db *pgxpool.Pool, q *queue.Queue, logger *zap.Logger) *Accountant {
	return &Accountant{db: db, q: q, logger: logger}
}

// Run blocks on the event stream, applying events as they arrive, until the
// context is cancelled.
func (a *Accountant) Run(ctx context.Context, consumer string) error {
	if err := a.q.EnsureStream(ctx); err != nil {
		return err
	}
	a.logger.Info("accounting consumer started", zap.String("consumer", consumer))

	for {
		ev, msgID, err := a.q.ReadEvent(ctx, consumer)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("event read error", zap.Error(err))
			continue
		}

		if err := a.Apply(ctx, ev); err != nil {
			a.logger.Error("event apply failed",
				zap.String("project", ev.ProjectID),
				zap.String("transaction", ev.TransactionID),
				zap.Error(err))
			// Leave the event unacked for redelivery.
			continue
		}

		if err := a.q.AckEvent(ctx, msgID); err != nil {
			a.logger.Warn("event ack failed", zap.String("id", msgID), zap.Error(err))
		}
		a.logger.Info("event applied",
			zap.String("project", ev.ProjectID),
			zap.String("action", ev.Action),
			zap.String("checksum", ev.Checksum),
			zap.Float64("seconds", ev.Elapsed))
	}
}

// Apply folds a single event into the time_acct table.
func (a *Accountant) Apply(ctx context.Context, ev *queue.MSBEvent) error {
	seconds := Delta(ev)
	if seconds == 0 {
		return nil
	}
	utdate, err := time.Parse("2006-01-02", ev.UTDate)
	if err != nil {
		return fmt.Errorf("parse utdate %q: %w", ev.UTDate, err)
	}
	_, err = a.db.Exec(ctx, `
		INSERT INTO time_acct (project_id, utdate, seconds)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, utdate) DO UPDATE
		SET seconds = time_acct.seconds + EXCLUDED.seconds
	`, ev.ProjectID, utdate, seconds)
	if err != nil {
		return fmt.Errorf("update time accounting: %w", err)
	}
	return nil
}

// Delta returns the signed time contribution of an event in seconds.
func Delta(ev *queue.MSBEvent) float64 {
	switch ev.Action {
	case "accept", "complete":
		return ev.Elapsed
	case "undo":
		return -ev.Elapsed
	}
	return 0
}

// NightTotal is a project's charged time for one UT date.
type NightTotal struct {
	ProjectID string
	UTDate    time.Time
	Seconds   float64
	Confirmed bool
}

// Totals returns a project's per-night accounting, most recent first.
func (a *Accountant) Totals(ctx context.Context, projectID string) ([]NightTotal, error) {
	rows, err := a.db.Query(ctx, `
		SELECT project_id, utdate, seconds, confirmed
		FROM time_acct WHERE project_id = $1 ORDER BY utdate DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query time accounting: %w", err)
	}
	defer rows.Close()

	var out []NightTotal
	for rows.Next() {
		var n NightTotal
		if err := rows.Scan(&n.ProjectID, &n.UTDate, &n.Seconds, &n.Confirmed); err != nil {
			return nil, fmt.Errorf("scan time accounting: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
