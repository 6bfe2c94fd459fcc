package appctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetachedCancelsOnStopChannel(t *testing.T) {
	stop := make(chan struct{})
	ctx, cancel := Detached(stop, time.Second)
	defer cancel()

	close(stop)

	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("context was not cancelled after stop channel closed")
	}
}

func TestDetachedCancelsOnTimeout(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	ctx, cancel := Detached(stop, 50*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		assert.Equal(t, "context deadline exceeded", ctx.Err().Error())
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled after timeout")
	}
}

func TestDetachedCancelFuncStopsContext(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	ctx, cancel := Detached(stop, time.Minute)
	cancel()

	require.Error(t, ctx.Err())
}
