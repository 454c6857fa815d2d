// bus.go
package bus

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// Wildcards: "+" matches one level, "#" matches the rest (zero or more).
const (
	Single = "+"
	Multi  = "#"
)

var ErrNoReply = errors.New("bus: no reply")

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of levels, e.g. {"hal", "capability", "tank", ...}.
type Topic []string

// T builds a topic from its levels.
func T(levels ...string) Topic { return Topic(levels) }

func (t Topic) String() string { return strings.Join(t, "/") }

// Append returns a new topic with levels appended.
func (t Topic) Append(levels ...string) Topic {
	out := make(Topic, 0, len(t)+len(levels))
	out = append(out, t...)
	return append(out, levels...)
}

// Match reports whether topic matches the subscription pattern.
func Match(pattern, topic Topic) bool {
	for i, p := range pattern {
		if p == Multi {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if p != Single && p != topic[i] {
			return false
		}
	}
	return len(pattern) == len(topic)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	subs     []*Subscription
	retained map[string]*Message
	qLen     int
	seq      uint64
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

// NewMessage builds a message; it is not published.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to all matching subscribers. A retained
// message with a nil payload clears the retained value for its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}

	for _, sub := range b.subs {
		if Match(sub.topic, msg.Topic) {
			deliver(sub.ch, msg)
		}
	}
}

// deliver never blocks: when the queue is full the oldest message is dropped.
func deliver(ch chan *Message, msg *Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (b *Bus) subscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	for _, m := range b.retained {
		if Match(sub.topic, m.Topic) {
			deliver(sub.ch, m)
		}
	}
}

func (b *Bus) unsubscribe(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub.ch)
			return true
		}
	}
	return false
}

func (b *Bus) replyTopic(id string) Topic {
	b.mu.Lock()
	b.seq++
	n := b.seq
	b.mu.Unlock()
	return T("_reply", id, strconv.FormatUint(n, 10))
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) ID() string { return c.id }

// NewMessage is a convenience for Bus.NewMessage.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection. Matching
// retained messages are delivered immediately.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.subscribe(sub)
	return sub
}

// Unsubscribe removes a subscription owned by this connection and closes
// its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.bus.unsubscribe(sub)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
	}
}

// Request assigns a fresh ReplyTo topic, subscribes to it and publishes msg.
// The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	msg.ReplyTo = c.bus.replyTopic(c.id)
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and waits for the first reply or ctx.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, ErrNoReply
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply answers req on its ReplyTo topic. It is a no-op when req has none.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if req == nil || len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
}
