package notification

import (
	"context"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier writes one record per notification, keyed by recipient so a
// participant's messages stay ordered.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaNotifier(writer messageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now}
}

func (n *KafkaNotifier) Notify(ctx context.Context, to domain.Contact, message string) error {
	body, err := encode(to, message, n.now())
	if err != nil {
		return err
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(recipient(to)),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("write notification to kafka: %w", err)
	}
	return nil
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisChannel is the pub/sub channel a participant subscribes to.
func RedisChannel(userID string) string { return "notifications:" + userID }

// RedisNotifier publishes to notifications:<recipient>.
type RedisNotifier struct {
	client redisPublisher
	now    func() time.Time
}

func NewRedisNotifier(client redisPublisher) *RedisNotifier {
	return &RedisNotifier{client: client, now: time.Now}
}

func (n *RedisNotifier) Notify(ctx context.Context, to domain.Contact, message string) error {
	body, err := encode(to, message, n.now())
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, RedisChannel(recipient(to)), body).Err(); err != nil {
		return fmt.Errorf("publish notification to redis: %w", err)
	}
	return nil
}

type userSender interface {
	SendToUser(userID string, message interface{}) (bool, error)
}

// WebSocketNotifier pushes to the recipient's live connection. A recipient
// with no connection is not an error.
type WebSocketNotifier struct {
	hub userSender
	now func() time.Time
}

func NewWebSocketNotifier(hub userSender) *WebSocketNotifier {
	return &WebSocketNotifier{hub: hub, now: time.Now}
}

func (n *WebSocketNotifier) Notify(_ context.Context, to domain.Contact, message string) error {
	if to.UserID == "" {
		return nil
	}
	if _, err := n.hub.SendToUser(to.UserID, newMessage(to, message, n.now())); err != nil {
		return fmt.Errorf("push notification to %s: %w", to.UserID, err)
	}
	return nil
}
