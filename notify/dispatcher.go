package notify

import (
	"context"
	"sync"
	"time"

	"campushub/models"

	log "github.com/sirupsen/logrus"
)

// Event is a notification request emitted by API handlers.
type Event struct {
	UserId  int64
	Type    string
	Content string
}

// Store persists notification rows.
type Store interface {
	CreateNotification(ctx context.Context, userId int64, notificationType, content string) (int64, error)
}

// Dispatcher consumes notification events on a worker pool, persisting each
// one and pushing it to live subscribers. Handlers enqueue fire-and-forget.
type Dispatcher struct {
	maxWorkers  int
	workerQueue chan Event
	store       Store
	broadcaster *Broadcaster
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewDispatcher(ctx context.Context, maxWorkers int, maxQueueSize int, store Store, broadcaster *Broadcaster) *Dispatcher {
	ctx, cancel := context.WithCancel(ctx)

	return &Dispatcher{
		maxWorkers:  maxWorkers,
		workerQueue: make(chan Event, maxQueueSize),
		store:       store,
		broadcaster: broadcaster,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.maxWorkers; i++ {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

func (d *Dispatcher) startWorker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			log.Infof("Worker %d: Shutting down", id)
			return
		case event := <-d.workerQueue:
			if err := d.process(event); err != nil {
				log.Errorf("Worker %d: Error processing notification: %v", id, err)
			}
		}
	}
}

func (d *Dispatcher) process(event Event) error {
	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	id, err := d.store.CreateNotification(ctx, event.UserId, event.Type, event.Content)
	if err != nil {
		return err
	}

	d.broadcaster.Broadcast(models.Notification{
		Id:        id,
		UserId:    event.UserId,
		Type:      event.Type,
		Content:   event.Content,
		CreatedAt: time.Now(),
	})

	return nil
}

// Enqueue hands an event to the pool without blocking the caller. When the
// queue is full the event is dropped with a warning; notifications are best
// effort.
func (d *Dispatcher) Enqueue(event Event) {
	select {
	case d.workerQueue <- event:
	default:
		log.WithFields(log.Fields{
			"userId": event.UserId,
			"type":   event.Type,
		}).Warn("Notification queue full, dropping event")
	}
}

func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
	d.broadcaster.Shutdown()
}
