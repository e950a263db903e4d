// Package events publishes accepted check-ins and check-outs to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/xelth-com/geoattend/internal/attendance"
)

// Event is the message value, one per accepted transition
type Event struct {
	Type     string    `json:"type"`
	RecordID string    `json:"recordId"`
	WorkerID string    `json:"workerId"`
	Worksite string    `json:"worksite"`
	DailyKey string    `json:"dailyKey"`
	At       time.Time `json:"at"`
}

// FromTransition builds the event for an accepted transition
func FromTransition(tr attendance.Transition) (Event, bool) {
	out := tr.Outcome
	if !out.Accepted {
		return Event{}, false
	}
	site := out.CheckedInSite
	if out.Kind == attendance.KindCheckOut {
		site = out.GpsSite
	}
	return Event{
		Type:     out.Kind.String(),
		RecordID: out.RecordID,
		WorkerID: tr.WorkerID,
		Worksite: site,
		DailyKey: tr.DailyKey,
		At:       tr.At.UTC(),
	}, true
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	queueSize    = 256
	writeTimeout = 10 * time.Second
)

// Publisher writes events from a background goroutine so that a slow or
// unavailable broker never delays a transition. Failed writes are logged.
type Publisher struct {
	writer messageWriter
	queue  chan kafka.Message

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewKafkaPublisher publishes to topic, keyed by worker id
func NewKafkaPublisher(brokers []string, topic string) *Publisher {
	log.Printf("📡 Events: publishing to Kafka topic %s via %v", topic, brokers)
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func newPublisher(w messageWriter) *Publisher {
	p := &Publisher{writer: w, queue: make(chan kafka.Message, queueSize), done: make(chan struct{})}
	go p.run()
	return p
}

// ObserveTransition queues the event of an accepted transition
func (p *Publisher) ObserveTransition(tr attendance.Transition) {
	ev, ok := FromTransition(tr)
	if !ok {
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		log.Printf("🔴 Events: encode %s for %s: %v", ev.Type, ev.RecordID, err)
		return
	}
	msg := kafka.Message{Key: []byte(ev.WorkerID), Value: value, Time: ev.At}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		log.Printf("⚠️ Events: queue full, dropping %s for record %s", ev.Type, ev.RecordID)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("🔴 Events: publish failed for worker %s: %v", msg.Key, err)
		}
		cancel()
	}
}

// Close drains the queue and closes the writer
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

// LogPublisher only logs accepted transitions; it stands in when no broker is configured
type LogPublisher struct{}

func (LogPublisher) ObserveTransition(tr attendance.Transition) {
	if ev, ok := FromTransition(tr); ok {
		log.Printf("📝 Events: %s %s by %s at %s", ev.Type, ev.RecordID, ev.WorkerID, ev.Worksite)
	}
}

func (LogPublisher) Close() error { return nil }
