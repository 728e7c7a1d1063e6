package notify_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"campushub/models"
	"campushub/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	nextId atomic.Int64
	err    error
}

func (f *fakeStore) CreateNotification(ctx context.Context, userId int64, notificationType, content string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.nextId.Add(1), nil
}

func TestDispatcherPersistsAndPushes(t *testing.T) {
	store := &fakeStore{}
	broadcaster := notify.NewBroadcaster()

	ch := make(chan models.Notification, 4)
	broadcaster.AddClient("ada-1", 1, ch)

	dispatcher := notify.NewDispatcher(context.Background(), 2, 16, store, broadcaster)
	dispatcher.Start()

	dispatcher.Enqueue(notify.Event{UserId: 1, Type: "CARPOOL_JOIN", Content: "Alan joined your trip"})

	select {
	case received := <-ch:
		assert.Equal(t, int64(1), received.Id)
		assert.Equal(t, int64(1), received.UserId)
		assert.Equal(t, "CARPOOL_JOIN", received.Type)
		assert.Equal(t, "Alan joined your trip", received.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached the subscriber")
	}

	dispatcher.Shutdown()
}

func TestDispatcherSkipsBroadcastOnStoreError(t *testing.T) {
	store := &fakeStore{err: context.DeadlineExceeded}
	broadcaster := notify.NewBroadcaster()

	ch := make(chan models.Notification, 1)
	broadcaster.AddClient("ada-1", 1, ch)

	dispatcher := notify.NewDispatcher(context.Background(), 1, 16, store, broadcaster)
	dispatcher.Start()

	dispatcher.Enqueue(notify.Event{UserId: 1, Type: "POST_LIKE", Content: "Ada liked your post"})

	select {
	case <-ch:
		t.Fatal("unpersisted notification must not be pushed")
	case <-time.After(200 * time.Millisecond):
	}

	dispatcher.Shutdown()
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	store := &fakeStore{}
	broadcaster := notify.NewBroadcaster()

	// No workers started, so the queue never drains
	dispatcher := notify.NewDispatcher(context.Background(), 0, 1, store, broadcaster)

	dispatcher.Enqueue(notify.Event{UserId: 1, Type: "LOAN_STATUS"})
	// Must not block
	dispatcher.Enqueue(notify.Event{UserId: 1, Type: "LOAN_STATUS"})

	dispatcher.Shutdown()
}

func TestShutdownStopsWorkers(t *testing.T) {
	dispatcher := notify.NewDispatcher(context.Background(), 4, 16, &fakeStore{}, notify.NewBroadcaster())
	dispatcher.Start()

	done := make(chan struct{})
	go func() {
		dispatcher.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	require.NotPanics(t, func() {
		dispatcher.Enqueue(notify.Event{UserId: 1, Type: "POST_COMMENT"})
	})
}
