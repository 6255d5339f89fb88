package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

type Publisher interface {
	PublishOrderEvent(ctx context.Context, eventType string, order *domain.Order) error
	Close() error
}

type OrderEvent struct {
	EventType   string             `json:"event_type"`
	OrderID     string             `json:"order_id"`
	UserID      string             `json:"user_id"`
	Status      domain.OrderStatus `json:"status"`
	TotalPrice  string             `json:"total_price"`
	IsPaid      bool               `json:"is_paid"`
	IsDelivered bool               `json:"is_delivered"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order *domain.Order) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID.String(),
		UserID:      order.UserID,
		Status:      order.Status(),
		TotalPrice:  order.TotalPrice.StringFixed(2),
		IsPaid:      order.IsPaid,
		IsDelivered: order.IsDelivered,
		OccurredAt:  time.Now().UTC(),
	}
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, eventType string, order *domain.Order) error {
	event := NewOrderEvent(eventType, order)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID), // orders are partitioned by id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
