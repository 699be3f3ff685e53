package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(EventInvoicePaid, "12", InvoicePaidPayload{ProductID: 12, Amount: "1000"})
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "12", env.CorrelationID)

	var payload InvoicePaidPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, uint64(12), payload.ProductID)
	assert.Equal(t, "1000", payload.Amount)
}

func TestKafkaPublisherFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, 8)
	p.Start()

	for _, eventType := range []string{EventProductCreated, EventShipmentDispatched} {
		env, err := NewEnvelope(eventType, "5", ShipmentPayload{ProductID: 5})
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), env))
	}
	p.Close()

	require.Len(t, w.messages, 2)
	assert.True(t, w.closed)
	assert.Equal(t, []byte("5"), w.messages[0].Key)
	assert.Equal(t, "x-event-type", w.messages[1].Headers[0].Key)
	assert.Equal(t, []byte(EventShipmentDispatched), w.messages[1].Headers[0].Value)

	env, _ := NewEnvelope(EventProductCreated, "6", nil)
	assert.ErrorIs(t, p.Publish(context.Background(), env), ErrPublisherClosed)
}

func TestKafkaPublisherDropsWhenFull(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, 1)

	env, _ := NewEnvelope(EventProductCreated, "1", nil)
	assert.NoError(t, p.Publish(context.Background(), env))
	// The loop is not running, so the second event does not fit.
	assert.NoError(t, p.Publish(context.Background(), env))

	p.Start()
	p.Close()
	assert.Len(t, w.messages, 1)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Envelope{}))
}
