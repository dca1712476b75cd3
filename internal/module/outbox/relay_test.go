package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportsclub/server/internal/utils/metrics"
)

type row struct {
	id, aggregateType, aggregateID, eventType string
	payload                                   []byte
	createdAt                                 time.Time
}

type fakeRows struct {
	pgx.Rows
	rows []row
	pos  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	cur := r.rows[r.pos-1]
	*dest[0].(*string) = cur.id
	*dest[1].(*string) = cur.aggregateType
	*dest[2].(*string) = cur.aggregateID
	*dest[3].(*string) = cur.eventType
	*dest[4].(*[]byte) = cur.payload
	*dest[5].(*time.Time) = cur.createdAt
	return nil
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

type fakeTx struct {
	pgx.Tx
	rows       []row
	markedIDs  []string
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &fakeRows{rows: t.rows}, nil
}

func (t *fakeTx) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	t.markedIDs = args[1].([]string)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct{ tx *fakeTx }

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) { return d.tx, nil }

type fakePublisher struct {
	msgs []kafka.Message
	err  error
}

func (p *fakePublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func pendingRows() []row {
	now := time.Now()
	return []row{
		{"11111111-1111-1111-1111-111111111111", "registration", "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", "payment.status_changed", []byte(`{"to":"pending"}`), now},
		{"22222222-2222-2222-2222-222222222222", "registration", "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", "payment.status_changed", []byte(`{"to":"paid"}`), now},
	}
}

func TestRelay_ProcessBatch(t *testing.T) {
	t.Run("publishes and marks processed", func(t *testing.T) {
		tx := &fakeTx{rows: pendingRows()}
		pub := &fakePublisher{}
		m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
		relay := NewRelay(&fakeDB{tx: tx}, pub, RelayConfig{BatchSize: 10}, m, nil)

		n, err := relay.ProcessBatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.True(t, tx.committed)
		assert.Equal(t, []string{
			"11111111-1111-1111-1111-111111111111",
			"22222222-2222-2222-2222-222222222222",
		}, tx.markedIDs)

		require.Len(t, pub.msgs, 2)
		assert.Equal(t, []byte("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"), pub.msgs[0].Key)
		assert.JSONEq(t, `{"to":"paid"}`, string(pub.msgs[1].Value))
		assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxPublishedTotal))
	})

	t.Run("publish failure rolls back", func(t *testing.T) {
		tx := &fakeTx{rows: pendingRows()}
		pub := &fakePublisher{err: errors.New("broker unavailable")}
		m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
		relay := NewRelay(&fakeDB{tx: tx}, pub, RelayConfig{}, m, nil)

		n, err := relay.ProcessBatch(context.Background())
		require.Error(t, err)
		assert.Zero(t, n)
		assert.False(t, tx.committed)
		assert.True(t, tx.rolledBack)
		assert.Nil(t, tx.markedIDs)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxFailuresTotal))
	})

	t.Run("empty batch publishes nothing", func(t *testing.T) {
		tx := &fakeTx{}
		pub := &fakePublisher{}
		relay := NewRelay(&fakeDB{tx: tx}, pub, RelayConfig{}, nil, nil)

		n, err := relay.ProcessBatch(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, pub.msgs)
		assert.False(t, tx.committed)
	})
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	relay := NewRelay(&fakeDB{tx: &fakeTx{}}, &fakePublisher{}, RelayConfig{Interval: time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
