package render

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/skin-check/internal/session"
)

const (
	publishQueueSize = 32
	publishTimeout   = 2 * time.Second
)

// Publisher abstracts the Redis operations used by the snapshot publisher to make testing easier.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisPublisher is a concrete implementation backed by go-redis.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher constructs a new Redis-backed publisher adapter.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends a message on a Redis pub/sub channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.client.Publish(ctx, channel, message).Err()
}

// Message is the payload published for every state change.
type Message struct {
	Snapshot  session.Snapshot `json:"snapshot"`
	View      View             `json:"view"`
	Timestamp time.Time        `json:"timestamp"`
}

// SnapshotPublisher forwards state changes to a pub/sub channel. Delivery
// happens on its own goroutine so observers never wait on the network; when
// the queue is full the change is dropped and logged.
type SnapshotPublisher struct {
	publisher Publisher
	channel   string
	queue     chan Message
	logger    *zap.Logger
}

// NewSnapshotPublisher returns a publisher for channel. Run must be started
// for messages to be delivered.
func NewSnapshotPublisher(publisher Publisher, channel string, logger *zap.Logger) *SnapshotPublisher {
	return &SnapshotPublisher{
		publisher: publisher,
		channel:   channel,
		queue:     make(chan Message, publishQueueSize),
		logger:    logger.Named("snapshot_publisher"),
	}
}

// OnStateChange implements session.Observer.
func (p *SnapshotPublisher) OnStateChange(snap session.Snapshot) {
	msg := Message{Snapshot: snap, View: Format(snap), Timestamp: time.Now().UTC()}
	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("snapshot queue full, dropping state change", zap.String("state", string(snap.State)))
	}
}

// Run delivers queued messages until ctx is done.
func (p *SnapshotPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		}
	}
}

func (p *SnapshotPublisher) deliver(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to serialize snapshot", zap.Error(err))
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.publisher.Publish(pubCtx, p.channel, string(payload)); err != nil {
		p.logger.Warn("failed to publish snapshot", zap.Error(err), zap.String("channel", p.channel))
	}
}
