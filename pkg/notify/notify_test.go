package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanPublisherDeliversToSubscriber(t *testing.T) {
	pub := NewChanPublisher()
	ch := pub.Subscribe("session-1")

	require.NoError(t, pub.Publish(context.Background(), "session-1", Event{
		ID: "lq-1", Action: "CREATE", Record: "person:alice",
	}))

	select {
	case ev := <-ch:
		assert.Equal(t, "lq-1", ev.ID)
		assert.Equal(t, "CREATE", ev.Action)
		assert.Equal(t, "person:alice", ev.Record)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestChanPublisherPublishWithNoSubscriberIsNoop(t *testing.T) {
	pub := NewChanPublisher()
	assert.NoError(t, pub.Publish(context.Background(), "nobody-listening", Event{ID: "lq-1"}))
}

func TestChanPublisherPublishRespectsContextCancellation(t *testing.T) {
	pub := NewChanPublisher()
	pub.Subscribe("session-1") // unbuffered-equivalent: fill the buffer, then block

	for i := 0; i < 64; i++ {
		require.NoError(t, pub.Publish(context.Background(), "session-1", Event{ID: "filler"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.Publish(ctx, "session-1", Event{ID: "dropped"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsNotifierTranslatesToEvent(t *testing.T) {
	pub := NewChanPublisher()
	ch := pub.Subscribe("session-1")
	notifier := AsNotifier(pub)

	require.NoError(t, notifier.Notify(context.Background(), "session-1", "lq-42", "KILLED", nil, nil))

	select {
	case ev := <-ch:
		assert.Equal(t, "lq-42", ev.ID)
		assert.Equal(t, "KILLED", ev.Action)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
