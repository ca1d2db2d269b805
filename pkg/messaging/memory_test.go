package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker_PublishSubscribe(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "slot.created")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "slot.created", Envelope{ID: "1", Type: "slot.created"}))

	msg := <-ch
	assert.JSONEq(t, `{"id":"1","type":"slot.created","payload":null,"created_at":""}`, string(msg))
	assert.Len(t, b.Published("slot.created"), 1)
	assert.Empty(t, b.Published("other"))

	require.NoError(t, b.Close())
	_, open := <-ch
	assert.False(t, open)
	assert.Error(t, b.Publish(ctx, "slot.created", "late"))
}
