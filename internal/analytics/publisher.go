package analytics

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PromptRecord is one structured row handed to the offline analytics sink
// after a generation call.
type PromptRecord struct {
	Prompt     string `json:"prompt"`
	Parameters string `json:"parameters"`
	Response   string `json:"response"`
	RecordedAt string `json:"recorded_at"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// NewPromptRecord stamps a record with the current UTC time.
func NewPromptRecord(prompt, parameters, response string, inputTokens, outputTokens int) PromptRecord {
	return PromptRecord{
		Prompt:       prompt,
		Parameters:   parameters,
		Response:     response,
		RecordedAt:   time.Now().UTC().Format("2006/01/02 15:04:05.000000"),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
}

// Recorder accepts batches of prompt records. The zero-value NopRecorder is
// used when no sink is configured.
type Recorder interface {
	PublishRecords(ctx context.Context, records []PromptRecord) error
}

type NopRecorder struct{}

func (NopRecorder) PublishRecords(context.Context, []PromptRecord) error { return nil }

// Publisher ships record batches to a durable queue for an offline consumer.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	mainQ := queue
	retryQ := queue + ".retry"
	dlqQ := queue + ".dlq"

	// DLQ
	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Retry queue: message TTL -> dead-letter back to main queue
	if _, err := ch.QueueDeclare(
		retryQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": mainQ,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	// Main queue: dead-letter to DLQ on reject/nack(requeue=false)
	if _, err := ch.QueueDeclare(
		mainQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlqQ,
		},
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishRecords(ctx context.Context, records []PromptRecord) error {
	if len(records) == 0 {
		return nil
	}
	body, err := json.Marshal(records)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
