package feed

import "sync"

// Broker is a small topic-based fan-out. Unlike a plain channel it supports
// several subscribers per topic; slow subscribers drop messages instead of
// blocking the publisher.
type Broker[T any] struct {
	mu          sync.Mutex
	topics      map[string][]chan T
	maxSizeChan uint
}

func NewBroker[T any](maxCountMsgInTopic uint) *Broker[T] {
	return &Broker[T]{
		topics:      make(map[string][]chan T),
		maxSizeChan: maxCountMsgInTopic,
	}
}

func (b *Broker[T]) Publish(topic string, msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.topics[topic] {
		select {
		case ch <- msg:
		default:
			// подписчик не успевает — сообщение пропускаем
		}
	}
}

func (b *Broker[T]) Subscribe(topic string) chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.maxSizeChan)
	b.topics[topic] = append(b.topics[topic], ch)
	return ch
}

func (b *Broker[T]) Unsubscribe(topic string, ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, sub := range subs {
		if sub == ch {
			b.topics[topic] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (b *Broker[T]) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.topics[topic] {
		close(ch)
	}
	delete(b.topics, topic)
}
