// Package events publishes check-in mutations to a topic exchange so other
// services (dashboards, notifications) can follow the front desk live.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
)

const DefaultExchange = "checkin"

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the published body.
type Message struct {
	checkin.Event
	UserID int64 `json:"userId"`
}

type Publisher struct {
	ch       Channel
	exchange string
	logger   zerolog.Logger
}

// Connect dials url, retrying up to retries times with delay between attempts.
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "events.Connect"
	var (
		conn *amqp.Connection
		err  error
	)
	for range retries {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// NewPublisher declares a durable topic exchange and returns a publisher on it.
func NewPublisher(ch Channel, exchange string, logger zerolog.Logger) (*Publisher, error) {
	const op = "events.NewPublisher"
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "events").Logger(),
	}, nil
}

// RoutingKey is "checkin.<op>.<facilityId>".
func RoutingKey(ev checkin.Event) string {
	return fmt.Sprintf("checkin.%s.%d", ev.Op, ev.FacilityID)
}

func (p *Publisher) Publish(userID int64, ev checkin.Event) error {
	const op = "events.Publish"
	body, err := json.Marshal(Message{Event: ev, UserID: userID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = p.ch.Publish(p.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    ev.At,
		Type:         ev.Op,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ForUser returns a listener publishing the events of one staff member.
// Publish failures are logged; the mutation itself already succeeded.
func (p *Publisher) ForUser(userID int64) checkin.Listener {
	return checkin.ListenerFunc(func(_ context.Context, ev checkin.Event) {
		if err := p.Publish(userID, ev); err != nil {
			p.logger.Error().Err(err).Int64("userId", userID).Str("op", ev.Op).Msg("event not published")
		}
	})
}
