package ros

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"

	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros/cdr"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
	"github.com/mstoelzle/ros2-hsa/utils"
)

// DefaultQueueDepth is the keep-last history depth the HSA nodes subscribe and publish with.
const DefaultQueueDepth = 10

var (
	// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
	ErrBusClosed = errors.New("bus is closed")
	// ErrSubscriptionClosed is returned when receiving from a closed subscription.
	ErrSubscriptionClosed = errors.New("subscription is closed")
)

// Sample is a single serialized message as it travels over the bus.
type Sample struct {
	Topic    string
	TypeName string
	// Data is the CDR payload including its encapsulation header.
	Data     []byte
	Received time.Time
}

// Bus is an in-process stand-in for the ROS 2 graph. Messages published on a topic are serialized once
// and handed to every subscription of that topic. A topic is bound to the type of its first message.
type Bus struct {
	logger logging.Logger
	clock  clock.Clock

	mu         sync.Mutex
	subs       map[string][]*Subscription
	topicTypes map[string]string
	closed     bool
	minDepth   int

	published atomic.Uint64
	dropped   atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusClock sets the clock samples are stamped with on receipt.
func WithBusClock(clk clock.Clock) BusOption {
	return func(b *Bus) {
		b.clock = clk
	}
}

// WithMinQueueDepth raises the depth of every subscription to at least depth. Offline replays use it
// to keep keep-last queues from evicting samples that are published faster than they are consumed.
func WithMinQueueDepth(depth int) BusOption {
	return func(b *Bus) {
		b.minDepth = depth
	}
}

// NewBus returns an empty bus.
func NewBus(logger logging.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		logger:     logger,
		clock:      clock.New(),
		subs:       map[string][]*Subscription{},
		topicTypes: map[string]string{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish serializes msg and delivers it to every current subscriber of topic. Publishing never blocks
// on slow subscribers; their oldest queued samples are dropped instead.
func (b *Bus) Publish(ctx context.Context, topic string, msg cdr.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	typeName := msg.TypeName()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	if bound, ok := b.topicTypes[topic]; ok && bound != typeName {
		b.mu.Unlock()
		return errors.Errorf("topic %q carries %s, cannot publish %s", topic, bound, typeName)
	}
	b.topicTypes[topic] = typeName
	subs := append([]*Subscription(nil), b.subs[topic]...)
	b.mu.Unlock()

	sample := Sample{
		Topic:    topic,
		TypeName: typeName,
		Data:     cdr.Marshal(msg),
		Received: b.clock.Now(),
	}
	for _, sub := range subs {
		if evicted := sub.deliver(sample); evicted > 0 {
			b.dropped.Add(evicted)
			b.logger.Debugw("dropped oldest sample", "topic", topic, "depth", cap(sub.ch))
		}
	}
	b.published.Inc()
	return nil
}

// Subscribe registers a subscription on topic holding at most depth samples. A depth below one uses
// DefaultQueueDepth.
func (b *Bus) Subscribe(topic string, depth int) (*Subscription, error) {
	if depth < 1 {
		depth = DefaultQueueDepth
	}
	if depth < b.minDepth {
		depth = b.minDepth
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	sub := &Subscription{topic: topic, bus: b, ch: make(chan Sample, depth)}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub, nil
}

// Topics returns the sorted topics that have been published to.
func (b *Bus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	topics := lo.Keys(b.topicTypes)
	sort.Strings(topics)
	return topics
}

// TopicType returns the message type bound to topic.
func (b *Bus) TopicType(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	typeName, ok := b.topicTypes[topic]
	return typeName, ok
}

// Published returns the number of messages published so far.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the number of samples evicted from full subscription queues so far.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscription. Later publishes and subscribes fail with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := lo.Flatten(lo.Values(b.subs))
	b.subs = map[string][]*Subscription{}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.topic] = lo.Without(b.subs[sub.topic], sub)
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
}

// Subscription is a bounded keep-last queue of samples published on one topic.
type Subscription struct {
	topic string
	bus   *Bus

	mu     sync.Mutex
	ch     chan Sample
	closed bool

	dropped atomic.Uint64
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// C returns the channel samples are delivered on. It is closed when the subscription is.
func (s *Subscription) C() <-chan Sample {
	return s.ch
}

// Dropped returns the number of samples evicted because the queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops delivery and closes the channel. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver queues sample, evicting the oldest queued samples while the queue is full. It returns the
// number of evicted samples.
func (s *Subscription) deliver(sample Sample) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	var evicted uint64
	for {
		select {
		case s.ch <- sample:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Inc()
			evicted++
		default:
		}
	}
}

// Next waits for the next sample.
func (s *Subscription) Next(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case sample, ok := <-s.ch:
		if !ok {
			return Sample{}, ErrSubscriptionClosed
		}
		return sample, nil
	}
}

// DecodeSample decodes the payload of sample into its registered message type.
func DecodeSample[T cdr.Message](sample Sample) (T, error) {
	var zero T
	m, err := msgs.Decode(sample.TypeName, sample.Data)
	if err != nil {
		return zero, errors.Wrapf(err, "failed to decode sample on %q", sample.Topic)
	}
	typed, ok := m.(T)
	if !ok {
		return zero, utils.NewUnexpectedTypeError[T](m)
	}
	return typed, nil
}

// Receive waits for the next sample on sub and decodes it.
func Receive[T cdr.Message](ctx context.Context, sub *Subscription) (T, error) {
	sample, err := sub.Next(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeSample[T](sample)
}
