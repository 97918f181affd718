package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"news_sentiment/internal/domain"
)

const EventRunCompleted = "run.completed"

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// RunMessage is the body of a run.completed event.
type RunMessage struct {
	Event        string                 `json:"event"`
	RunID        string                 `json:"run_id"`
	Outcome      domain.RunState        `json:"outcome"`
	Aggregate    domain.AggregateResult `json:"aggregate"`
	InsertedURLs []string               `json:"inserted_urls"`
	Failures     []domain.ItemFailure   `json:"failures"`
	Timestamp    time.Time              `json:"timestamp"`
}

func NewRunMessage(r *domain.RunReport, now time.Time) RunMessage {
	msg := RunMessage{
		Event:        EventRunCompleted,
		RunID:        r.RunID,
		Outcome:      r.Outcome,
		Aggregate:    r.Aggregate,
		InsertedURLs: r.InsertedURLs,
		Failures:     r.Failures,
		Timestamp:    now.UTC(),
	}
	if msg.InsertedURLs == nil {
		msg.InsertedURLs = []string{}
	}
	if msg.Failures == nil {
		msg.Failures = []domain.ItemFailure{}
	}
	return msg
}

func (r *RabbitMQ) PublishRun(ctx context.Context, report *domain.RunReport) error {
	body, err := json.Marshal(NewRunMessage(report, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    report.RunID,
			Type:         EventRunCompleted,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published run",
		"run_id", report.RunID,
		"inserted", len(report.InsertedURLs),
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
