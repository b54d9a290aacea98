package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 账号生命周期事件
const (
	AccountCreated         = "account.created"
	AccountUpdated         = "account.updated"
	AccountPasswordChanged = "account.password_changed"
	AccountDeleted         = "account.deleted"
)

const DefaultStream = "account.events"

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type AccountEvent struct {
	AccountID int64  `json:"accountId"`
	Email     string `json:"email,omitempty"`
}

// Publisher 通过 XADD 写入 redis stream，下游（follow / feed 服务）用消费组读取
type Publisher struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream, now: time.Now}
}

func Encode(eventType string, data any, ts time.Time) ([]byte, error) {
	b, err := json.Marshal(Event{Type: eventType, Timestamp: ts.UTC(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

func (p *Publisher) Publish(ctx context.Context, eventType string, data any) error {
	b, err := Encode(eventType, data, p.now())
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": b},
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Nop 未配置 redis 时使用
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
