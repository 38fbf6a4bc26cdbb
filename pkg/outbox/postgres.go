package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/pkg/pgutil"
)

// Writer appends events through whatever handle it was built with; inside a
// unit of work that is the transaction of the aggregate write.
type Writer struct {
	db pgutil.DBTX
}

func NewWriter(db pgutil.DBTX) *Writer {
	return &Writer{db: db}
}

func (w *Writer) Append(ctx context.Context, ev Event) error {
	_, err := w.db.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, ev.Headers, ev.Traceparent)
	return err
}

type PostgresStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewPostgresStore(log *slog.Logger, pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{log: log, pool: pool}
}

// LockBatch claims pending rows, plus in-progress rows whose lease ran out
// because a relay died mid-batch.
func (s *PostgresStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error) {
	var events []Event
	err := pgutil.ExecTx(ctx, s.pool, pgutil.DefaultTxOptions, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at, retry_count
			FROM outbox
			WHERE status = 'pending'
			   OR (status = 'in_progress' AND lease_until < now())
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		`, batchSize)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ev Event
			var headers map[string]string
			if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &headers, &ev.Traceparent, &ev.CreatedAt, &ev.RetryCount); err != nil {
				return err
			}
			ev.Headers = headers
			ev.Status = StatusInProgress
			ev.RelayID = relayID
			events = append(events, ev)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		_, err = tx.Exec(ctx, `UPDATE outbox SET status='in_progress', relay_id=$1, lease_until=now() + make_interval(secs => $2) WHERE id = ANY($3)`,
			relayID, lease.Seconds(), ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

// MarkFailed returns the event to the queue until it has failed maxRetries
// times, after which it is parked as failed.
func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox
		SET status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		    last_error = $2,
		    retry_count = retry_count + 1,
		    relay_id = NULL,
		    lease_until = NULL
		WHERE id = $1`, id, errMsg, maxRetries)
	return err
}
