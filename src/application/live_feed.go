package application

import (
	"sync"

	"github.com/google/uuid"
)

// Notifies subscribers that the sales of an item collection changed.
type LiveFeed interface {
	Subscribe(uuid.UUID) (<-chan struct{}, func())
	Publish(uuid.UUID)
}

type liveFeed struct {
	mutex       sync.Mutex
	subscribers map[uuid.UUID]map[chan struct{}]struct{}
}

func NewLiveFeed() LiveFeed {
	return &liveFeed{subscribers: map[uuid.UUID]map[chan struct{}]struct{}{}}
}

// The returned channel coalesces notifications that arrive while the subscriber is busy.
func (self *liveFeed) Subscribe(id uuid.UUID) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	self.mutex.Lock()
	defer self.mutex.Unlock()

	if self.subscribers[id] == nil {
		self.subscribers[id] = map[chan struct{}]struct{}{}
	}
	self.subscribers[id][ch] = struct{}{}

	return ch, func() {
		self.mutex.Lock()
		defer self.mutex.Unlock()

		delete(self.subscribers[id], ch)
		if len(self.subscribers[id]) == 0 {
			delete(self.subscribers, id)
		}
	}
}

func (self *liveFeed) Publish(id uuid.UUID) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	for ch := range self.subscribers[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
