package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eaobservatory/omp/internal/queue"
	"github.com/eaobservatory/omp/internal/sciprog"
)

// ErrProjectNotFound means no science program is stored for the project.
var ErrProjectNotFound = errors.New("project not found")

// MSB done-log statuses.
const (
	StatusAccepted = "ACCEPTED"
	StatusUndone   = "UNDONE"
	StatusComplete = "COMPLETE"
)

// Store persists science programs and the MSB done-log in PostgreSQL and
// publishes MSB activity events to the queue. Each MSB operation runs in a
// transaction holding a row lock on the program, which serializes
// concurrent operations against the same project.
type Store struct {
	pool *pgxpool.Pool
	q    *queue.Queue
}

// New creates a Store. The queue may be nil, in which case events are not
// published (useful for offline tools).
func New(pool *pgxpool.Pool, q *queue.Queue) *Store {
	return &Store{pool: pool, q: q}
}

// DoneEntry is one row of a project's MSB done-log.
type DoneEntry struct {
	Checksum      string
	Title         string
	Status        string
	TransactionID string
	Comment       string
	DoneAt        time.Time
}

// Result describes an applied MSB operation.
type Result struct {
	MSB           sciprog.MSB
	TransactionID string
}

// SaveProgram stores (or replaces) a project's science program document.
func (s *Store) SaveProgram(ctx context.Context, projectID string, p *sciprog.Program) error {
	doc, err := p.WriteString()
	if err != nil {
		return fmt.Errorf("serialize program: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sciprog (project_id, document, stored_at)
		VALUES ($1, $2, now())
		ON CONFLICT (project_id) DO UPDATE SET document = $2, stored_at = now()
	`, projectID, doc)
	if err != nil {
		return fmt.Errorf("store program: %w", err)
	}
	return nil
}

// LoadProgram fetches and parses a project's science program.
func (s *Store) LoadProgram(ctx context.Context, projectID string) (*sciprog.Program, error) {
	var doc string
	err := s.pool.QueryRow(ctx,
		"SELECT document FROM sciprog WHERE project_id = $1", projectID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	p, err := sciprog.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse stored program: %w", err)
	}
	return p, nil
}

// AcceptMSB applies an accept to the stored program: load under a row lock,
// mutate, save, log and publish. Returns the resolved MSB and the
// transaction ID recorded in the done-log.
func (s *Store) AcceptMSB(ctx context.Context, projectID, checksum, comment string) (*Result, error) {
	return s.apply(ctx, projectID, checksum, comment, StatusAccepted,
		func(p *sciprog.Program) (sciprog.MSB, error) { return p.Accept(checksum) })
}

// UndoMSB reverses a previous accept's counter decrement.
func (s *Store) UndoMSB(ctx context.Context, projectID, checksum, comment string) (*Result, error) {
	return s.apply(ctx, projectID, checksum, comment, StatusUndone,
		func(p *sciprog.Program) (sciprog.MSB, error) { return p.Undo(checksum) })
}

// CompleteMSB marks the MSB fully done regardless of repeats left.
func (s *Store) CompleteMSB(ctx context.Context, projectID, checksum, comment string) (*Result, error) {
	return s.apply(ctx, projectID, checksum, comment, StatusComplete,
		func(p *sciprog.Program) (sciprog.MSB, error) { return p.Complete(checksum) })
}

func (s *Store) apply(ctx context.Context, projectID, checksum, comment, status string,
	op func(*sciprog.Program) (sciprog.MSB, error)) (*Result, error) {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var doc string
	err = tx.QueryRow(ctx,
		"SELECT document FROM sciprog WHERE project_id = $1 FOR UPDATE", projectID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}

	p, err := sciprog.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse stored program: %w", err)
	}

	msb, err := op(p)
	if err != nil {
		return nil, err
	}

	out, err := p.WriteString()
	if err != nil {
		return nil, fmt.Errorf("serialize program: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE sciprog SET document = $1, stored_at = now() WHERE project_id = $2
	`, out, projectID); err != nil {
		return nil, fmt.Errorf("store program: %w", err)
	}

	txnID := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO msb_done (project_id, checksum, title, status, transaction_id, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, projectID, msb.Checksum, msb.Title, status, txnID, comment); err != nil {
		return nil, fmt.Errorf("log msb %s: %w", status, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// Publish after commit; accounting tolerates replays, so a lost event
	// is worse than a duplicate.
	if s.q != nil {
		_, err := s.q.PushEvent(ctx, queue.MSBEvent{
			ProjectID:     projectID,
			Checksum:      msb.Checksum,
			Title:         msb.Title,
			Action:        actionFor(status),
			TransactionID: txnID,
			Elapsed:       elapsed(msb),
			UTDate:        time.Now().UTC().Format("2006-01-02"),
		})
		if err != nil {
			return nil, fmt.Errorf("publish msb event: %w", err)
		}
	}

	return &Result{MSB: msb, TransactionID: txnID}, nil
}

// DoneHistory returns a project's done-log, most recent first.
func (s *Store) DoneHistory(ctx context.Context, projectID string) ([]DoneEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT checksum, title, status, transaction_id, comment, done_at
		FROM msb_done WHERE project_id = $1 ORDER BY done_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query done-log: %w", err)
	}
	defer rows.Close()

	var out []DoneEntry
	for rows.Next() {
		var e DoneEntry
		if err := rows.Scan(&e.Checksum, &e.Title, &e.Status, &e.TransactionID, &e.Comment, &e.DoneAt); err != nil {
			return nil, fmt.Errorf("scan done-log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func actionFor(status string) string {
	switch status {
	case StatusAccepted:
		return "accept"
	case StatusUndone:
		return "undo"
	case StatusComplete:
		return "complete"
	}
	return strings.ToLower(status)
}

func elapsed(m sciprog.MSB) float64 {
	var total float64
	for _, o := range m.Obs {
		total += o.Elapsed
	}
	return total
}
