package notify

import (
	"sync"

	"campushub/models"

	log "github.com/sirupsen/logrus"
)

type client struct {
	userId int64
	ch     chan models.Notification
}

// Broadcaster fans persisted notifications out to connected SSE clients.
type Broadcaster struct {
	sync.RWMutex
	clients map[string]client
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]client),
	}
}

// Broadcast delivers a notification to every connection owned by its user.
func (b *Broadcaster) Broadcast(notification models.Notification) {
	b.RLock()
	defer b.RUnlock()

	for key, c := range b.clients {
		if c.userId != notification.UserId {
			continue
		}
		select {
		case c.ch <- notification: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping notification for client: %v", key)
		}
	}
}

// AddClient registers a connection for a user.
func (b *Broadcaster) AddClient(key string, userId int64, ch chan models.Notification) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client{userId: userId, ch: ch}
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

// RemoveClient closes and drops a connection.
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if c, ok := b.clients[key]; ok {
		close(c.ch)
		delete(b.clients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, c := range b.clients {
		close(c.ch)
		delete(b.clients, key)
	}
}
