// Package loadevents publishes isochrone load outcomes to Kafka for
// offline analysis of which areas and categories get queried. Publishing
// is fire-and-forget and never blocks the load path.
package loadevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

type Event struct {
	Category string    `json:"category"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Outcome  string    `json:"outcome"` // hit, miss, timeout, error
	DurMS    int64     `json:"dur_ms"`
	TS       time.Time `json:"ts"`
}

// Sink is what the manager holds; NopSink keeps call sites unconditional
// when Kafka is disabled.
type Sink interface {
	Publish(ev Event)
}

type NopSink struct{}

func (NopSink) Publish(Event) {}

type Publisher struct {
	topic   string
	log     *slog.Logger
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
}

var _ Sink = (*Publisher)(nil)

func NewPublisher(brokers, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	if queueSize <= 0 {
		queueSize = 1024
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(strings.Split(brokers, ","), cfg)
	if err != nil {
		return nil, fmt.Errorf("loadevents: create async producer: %w", err)
	}

	p := &Publisher{
		topic:   topic,
		log:     log,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("loadevents marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Category),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("loadevents producer", "err", err)
			}
		}
	}()

	return p, nil
}

func (p *Publisher) Publish(ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
	default:
		// queue full: drop rather than slow the load path
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("loadevents: close producer: %w", err)
	}
	return nil
}
