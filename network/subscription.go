package network

import (
	"sync"
)

// DefaultSubscriptionBuffer is the number of undelivered messages a
// subscription holds before new ones are dropped.
const DefaultSubscriptionBuffer = 256

// Subscription delivers the messages of one topic. Delivery never blocks the
// network; when the consumer falls behind, messages are dropped.
type Subscription struct {
	topic    Topic
	messages chan Message
	done     chan struct{}
	once     sync.Once
	release  func()
}

// NewSubscription creates a subscription for topic. release is called once
// when the subscription is cancelled.
func NewSubscription(topic Topic, buffer int, release func()) *Subscription {
	return &Subscription{
		topic:    topic,
		messages: make(chan Message, buffer),
		done:     make(chan struct{}),
		release:  release,
	}
}

func (s *Subscription) Topic() Topic {
	return s.topic
}

// Messages returns the channel of received messages. The channel is never
// closed; select on Done to learn about cancellation.
func (s *Subscription) Messages() <-chan Message {
	return s.messages
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Deliver hands msg to the consumer. It returns false if the subscription is
// cancelled or its buffer is full.
func (s *Subscription) Deliver(msg Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.messages <- msg:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// Cancel ends the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
}
