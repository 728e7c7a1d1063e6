package notify_test

import (
	"testing"

	"campushub/models"
	"campushub/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDeliversToOwnerOnly(t *testing.T) {
	b := notify.NewBroadcaster()

	adaCh := make(chan models.Notification, 1)
	alanCh := make(chan models.Notification, 1)
	b.AddClient("ada-1", 1, adaCh)
	b.AddClient("alan-1", 2, alanCh)

	b.Broadcast(models.Notification{Id: 10, UserId: 1, Type: "LOAN_REQUEST", Content: "Ada wants your drill"})

	require.Len(t, adaCh, 1)
	received := <-adaCh
	assert.Equal(t, int64(10), received.Id)
	assert.Equal(t, "LOAN_REQUEST", received.Type)

	assert.Empty(t, alanCh)
}

func TestBroadcastReachesEveryConnectionOfAUser(t *testing.T) {
	b := notify.NewBroadcaster()

	first := make(chan models.Notification, 1)
	second := make(chan models.Notification, 1)
	b.AddClient("ada-laptop", 1, first)
	b.AddClient("ada-phone", 1, second)

	b.Broadcast(models.Notification{Id: 11, UserId: 1})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestBroadcastSkipsFullChannels(t *testing.T) {
	b := notify.NewBroadcaster()

	ch := make(chan models.Notification, 1)
	ch <- models.Notification{Id: 1, UserId: 1}
	b.AddClient("ada-1", 1, ch)

	// Must return instead of blocking on the full buffer
	b.Broadcast(models.Notification{Id: 2, UserId: 1})

	require.Len(t, ch, 1)
	assert.Equal(t, int64(1), (<-ch).Id)
}

func TestRemoveClientClosesChannel(t *testing.T) {
	b := notify.NewBroadcaster()

	ch := make(chan models.Notification, 1)
	b.AddClient("ada-1", 1, ch)
	b.RemoveClient("ada-1")

	_, open := <-ch
	assert.False(t, open)

	// Removing twice is harmless
	b.RemoveClient("ada-1")

	// And the closed connection no longer receives anything
	b.Broadcast(models.Notification{Id: 3, UserId: 1})
}

func TestShutdownClosesAllChannels(t *testing.T) {
	b := notify.NewBroadcaster()

	first := make(chan models.Notification, 1)
	second := make(chan models.Notification, 1)
	b.AddClient("ada-1", 1, first)
	b.AddClient("alan-1", 2, second)

	b.Shutdown()

	_, open := <-first
	assert.False(t, open)
	_, open = <-second
	assert.False(t, open)
}
