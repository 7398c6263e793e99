// Package events publishes execution lifecycle events to Kafka. Publishing is
// best-effort: the execution response never depends on the broker.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/iarunsaragadam/isobox/model"
	"github.com/segmentio/kafka-go"
)

// ExecutionEvent describes one completed execution
type ExecutionEvent struct {
	Type        string    `json:"type"`
	Language    string    `json:"language"`
	ExitCode    int       `json:"exit_code"`
	TimeTaken   float64   `json:"time_taken"`
	TestCases   int       `json:"test_cases"`
	TestsPassed int       `json:"tests_passed"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher writes execution events to a Kafka topic. A disabled publisher is
// a no-op so callers never need to branch.
type Publisher struct {
	writer  *kafka.Writer
	enabled bool
}

// NewPublisher creates an event publisher. When enabled is false no Kafka
// connection is made.
func NewPublisher(enabled bool, brokers []string, topic string) *Publisher {
	if !enabled {
		return &Publisher{}
	}
	return &Publisher{
		enabled: true,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// Enabled reports whether events are published.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishExecution emits an execution.completed event for the response.
// Failures are logged and swallowed.
func (p *Publisher) PublishExecution(ctx context.Context, language string, response *model.ExecuteResponse) {
	if !p.enabled || response == nil {
		return
	}

	event := ExecutionEvent{
		Type:      "execution.completed",
		Language:  language,
		ExitCode:  response.ExitCode,
		Timestamp: time.Now().UTC(),
	}
	if response.TimeTaken != nil {
		event.TimeTaken = *response.TimeTaken
	}
	event.TestCases = len(response.TestResults)
	for _, result := range response.TestResults {
		if result.Passed {
			event.TestsPassed++
		}
	}

	value, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling execution event: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(language),
		Value: value,
	}); err != nil {
		log.Printf("Error publishing execution event: %v", err)
	}
}

// Close releases the underlying writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
