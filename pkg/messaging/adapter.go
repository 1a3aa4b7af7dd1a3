package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrClosed = errors.New("broker closed")

// Encode marshals message to JSON unless it already is raw bytes.
func Encode(message interface{}) ([]byte, error) {
	if b, ok := message.([]byte); ok {
		return b, nil
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return payload, nil
}

// Publisher wraps events in a Message envelope and sends them on one channel.
type Publisher struct {
	broker  Broker
	channel string
}

func NewPublisher(broker Broker, channel string) *Publisher {
	return &Publisher{broker: broker, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return p.broker.Publish(ctx, p.channel, Message{Type: eventType, Payload: payload})
}

func (p *Publisher) Close() error {
	return p.broker.Close()
}

// Listen decodes every message on the publisher's channel and hands it to
// handler until ctx ends. Undecodable messages are skipped.
func (p *Publisher) Listen(ctx context.Context, handler func(Message)) error {
	msgs, err := p.broker.Subscribe(ctx, p.channel)
	if err != nil {
		return err
	}
	go func() {
		for raw := range msgs {
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			handler(msg)
		}
	}()
	return nil
}
