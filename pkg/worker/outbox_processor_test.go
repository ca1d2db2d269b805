package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/messaging"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

type failingBroker struct {
	calls int
}

func (b *failingBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.calls++
	return errors.New("broker down")
}

func (b *failingBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("broker down")
}

func (b *failingBroker) Close() error { return nil }

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		MaxRetries:    2,
		Retention:     time.Hour,
	}
}

func seed(t *testing.T, repos interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
}, eventType string) *model.OutboxEvent {
	t.Helper()
	ev := &model.OutboxEvent{EventType: eventType, Payload: json.RawMessage(`{"slot_id":"abc"}`)}
	require.NoError(t, repos.Create(context.Background(), ev))
	return ev
}

func TestOutboxProcessor_PublishesAndMarksProcessed(t *testing.T) {
	repos, _ := memory.NewRepositories()
	broker := messaging.NewMemoryBroker()
	p := NewOutboxProcessor(repos.Outbox, broker, testConfig(), logger.Nop(), metrics.NewTestMetrics())

	ev := seed(t, repos.Outbox, model.EventSlotCreated)

	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	published := broker.Published(model.EventSlotCreated)
	require.Len(t, published, 1)

	var env struct {
		ID      string          `json:"id"`
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(published[0], &env))
	assert.Equal(t, ev.ID.String(), env.ID)
	assert.Equal(t, model.EventSlotCreated, env.Type)
	assert.JSONEq(t, `{"slot_id":"abc"}`, string(env.Payload))

	pending, err := repos.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxProcessor_RetriesThenFails(t *testing.T) {
	repos, _ := memory.NewRepositories()
	broker := &failingBroker{}
	p := NewOutboxProcessor(repos.Outbox, broker, testConfig(), logger.Nop(), metrics.NewTestMetrics())
	// retry timestamps in the past make the event due again immediately
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }

	seed(t, repos.Outbox, model.EventAppointmentBooked)

	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, broker.calls)

	pending, err := repos.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.OutboxStatusRetry, pending[0].Status)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].ErrorMessage)
	assert.Equal(t, "broker down", *pending[0].ErrorMessage)

	_, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)

	pending, err = repos.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "event should be marked failed after MaxRetries")
}

func TestOutboxProcessor_RetryIsDelayed(t *testing.T) {
	repos, _ := memory.NewRepositories()
	p := NewOutboxProcessor(repos.Outbox, &failingBroker{}, testConfig(), logger.Nop(), metrics.NewTestMetrics())
	p.now = func() time.Time { return time.Now().Add(time.Hour) }

	seed(t, repos.Outbox, model.EventSlotUpdated)
	_, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)

	pending, err := repos.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNewOutboxProcessor_InvalidConfigPanics(t *testing.T) {
	repos, _ := memory.NewRepositories()
	cfg := testConfig()
	cfg.MaxRetries = 0
	assert.Panics(t, func() {
		NewOutboxProcessor(repos.Outbox, messaging.NewMemoryBroker(), cfg, logger.Nop(), metrics.NewTestMetrics())
	})
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, 0))
	assert.Equal(t, 4*time.Second, backoff(time.Second, 2))
	assert.Equal(t, time.Hour, backoff(time.Minute, 10))
}

func TestOutboxCleanupWorker(t *testing.T) {
	repos, _ := memory.NewRepositories()
	p := NewOutboxProcessor(repos.Outbox, messaging.NewMemoryBroker(), testConfig(), logger.Nop(), metrics.NewTestMetrics())
	seed(t, repos.Outbox, model.EventSlotCreated)
	_, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)

	w := NewOutboxCleanupWorker(repos.Outbox, time.Hour, time.Minute, logger.Nop())
	assert.Equal(t, int64(0), w.Cleanup(context.Background(), time.Now()))
	assert.Equal(t, int64(1), w.Cleanup(context.Background(), time.Now().Add(2*time.Hour)))
}
