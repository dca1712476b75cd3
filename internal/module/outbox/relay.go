package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sportsclub/server/internal/utils/metrics"
)

const (
	selectPending = `SELECT id::text, aggregate_type, aggregate_id::text, event_type, payload, created_at
FROM outbox_messages
WHERE processed_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

	markProcessed = `UPDATE outbox_messages SET processed_at = $1 WHERE id = ANY($2::uuid[])`
)

// TxBeginner starts database transactions. *pgxpool.Pool implements it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Publisher writes messages to the broker. *kafka.Writer implements it.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	BatchSize int
	Interval  time.Duration
}

// Relay moves committed outbox rows to Kafka.
// Rows are locked with SKIP LOCKED so several relays can run side by side.
type Relay struct {
	db        TxBeginner
	publisher Publisher
	cfg       RelayConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewRelay creates a new outbox relay.
func NewRelay(db TxBeginner, publisher Publisher, cfg RelayConfig, m *metrics.Metrics, logger *zap.Logger) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{db: db, publisher: publisher, cfg: cfg, metrics: m, logger: logger}
}

// NewKafkaWriter creates the Kafka writer used by the relay.
// Messages are keyed by aggregate id so events of one purchase stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Run processes batches every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started",
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Duration("interval", r.cfg.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("process outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch of pending messages and marks them
// processed. It returns the number of messages published.
func (r *Relay) ProcessBatch(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordOutboxBatch(n, err, time.Since(start))
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	msgs, ids, err := r.fetch(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := r.publisher.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish outbox messages: %w", err)
	}

	if _, err := tx.Exec(ctx, markProcessed, time.Now().UTC(), ids); err != nil {
		return 0, fmt.Errorf("mark outbox messages processed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}

	r.logger.Debug("published outbox batch", zap.Int("count", len(msgs)))
	return len(msgs), nil
}

func (r *Relay) fetch(ctx context.Context, tx pgx.Tx) ([]kafka.Message, []string, error) {
	rows, err := tx.Query(ctx, selectPending, r.cfg.BatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("query outbox messages: %w", err)
	}
	defer rows.Close()

	var (
		msgs []kafka.Message
		ids  []string
	)
	for rows.Next() {
		var (
			id, aggregateType, aggregateID, eventType string
			payload                                   []byte
			createdAt                                 time.Time
		)
		if err := rows.Scan(&id, &aggregateType, &aggregateID, &eventType, &payload, &createdAt); err != nil {
			return nil, nil, fmt.Errorf("scan outbox message: %w", err)
		}
		ids = append(ids, id)
		msgs = append(msgs, kafka.Message{
			Key:   []byte(aggregateID),
			Value: payload,
			Time:  createdAt,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(id)},
				{Key: "event_type", Value: []byte(eventType)},
				{Key: "aggregate_type", Value: []byte(aggregateType)},
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return msgs, ids, nil
}
