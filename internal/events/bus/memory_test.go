package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux-core/internal/common/logger"
)

func waitFor(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event delivery")
		return nil
	}
}

func TestPublishSubscribeExactMatch(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	defer b.Close()

	received := make(chan *Event, 1)
	_, err := b.Subscribe("team.created", func(_ context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	evt := NewEvent("team.created", "orchestrator", map[string]interface{}{"teamId": "t-1"})
	require.NoError(t, b.Publish(context.Background(), "team.created", evt))

	got := waitFor(t, received)
	assert.Equal(t, evt.ID, got.ID)
}

func TestSubscribeWildcardSingleToken(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	defer b.Close()

	received := make(chan *Event, 1)
	_, err := b.Subscribe("team.*", func(_ context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	evt := NewEvent("team.started", "orchestrator", nil)
	require.NoError(t, b.Publish(context.Background(), "team.started", evt))
	waitFor(t, received)

	// "team.*" matches exactly one token; "team.member.status_changed" should not.
	evt2 := NewEvent("team.member.status_changed", "orchestrator", nil)
	require.NoError(t, b.Publish(context.Background(), "team.member.status_changed", evt2))

	select {
	case <-received:
		t.Fatal("wildcard '*' should not match a multi-token subject")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeWildcardRemainder(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	defer b.Close()

	received := make(chan *Event, 1)
	_, err := b.Subscribe("team.>", func(_ context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	evt := NewEvent("team.member.status_changed", "orchestrator", nil)
	require.NoError(t, b.Publish(context.Background(), "team.member.status_changed", evt))
	waitFor(t, received)
}

func TestSubscribeWildcardMatchesOnlyOwnRoot(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	defer b.Close()

	received := make(chan *Event, 2)
	_, err := b.Subscribe("task.*", func(_ context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), SubjectTaskAssigned, NewEvent(SubjectTaskAssigned, "orchestrator", nil)))
	require.NoError(t, b.Publish(context.Background(), SubjectTaskCompleted, NewEvent(SubjectTaskCompleted, "orchestrator", nil)))
	waitFor(t, received)
	waitFor(t, received)

	// A "task.*" subscriber must not see events under an unrelated root.
	require.NoError(t, b.Publish(context.Background(), SubjectScheduleFired, NewEvent(SubjectScheduleFired, "scheduler", nil)))
	select {
	case <-received:
		t.Fatal("task.* subscriber should not receive schedule.fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQueueSubscribeRoundRobin(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	defer b.Close()

	got1 := make(chan *Event, 4)
	got2 := make(chan *Event, 4)
	_, err := b.QueueSubscribe("task.assigned", "workers", func(_ context.Context, evt *Event) error {
		got1 <- evt
		return nil
	})
	require.NoError(t, err)
	_, err = b.QueueSubscribe("task.assigned", "workers", func(_ context.Context, evt *Event) error {
		got2 <- evt
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Publish(context.Background(), "task.assigned", NewEvent("task.assigned", "orchestrator", nil)))
	}

	deadline := time.After(time.Second)
	total := 0
	for total < 4 {
		select {
		case <-got1:
			total++
		case <-got2:
			total++
		case <-deadline:
			t.Fatalf("only %d of 4 events delivered", total)
		}
	}

	assert.NotEmpty(t, got1)
	assert.NotEmpty(t, got2)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	defer b.Close()

	received := make(chan *Event, 1)
	sub, err := b.Subscribe("schedule.fired", func(_ context.Context, evt *Event) error {
		received <- evt
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())

	require.NoError(t, b.Publish(context.Background(), "schedule.fired", NewEvent("schedule.fired", "scheduler", nil)))

	select {
	case <-received:
		t.Fatal("unsubscribed handler should not receive events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	b := NewMemoryEventBus(logger.Default())
	b.Close()

	assert.False(t, b.IsConnected())

	_, err := b.Subscribe("team.created", func(context.Context, *Event) error { return nil })
	assert.Error(t, err)

	err = b.Publish(context.Background(), "team.created", NewEvent("team.created", "orchestrator", nil))
	assert.Error(t, err)
}
