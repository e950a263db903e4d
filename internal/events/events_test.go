package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/xelth-com/geoattend/internal/attendance"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	fail   bool
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("broker down")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func transition(kind attendance.Kind, accepted bool) attendance.Transition {
	return attendance.Transition{
		WorkerID: "w1",
		DailyKey: "w1_2024-03-04",
		At:       time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC),
		Outcome: attendance.Outcome{
			Kind:          kind,
			Accepted:      accepted,
			RecordID:      "r1",
			GpsSite:       "Jurong",
			CheckedInSite: "Jurong",
		},
	}
}

func TestPublisherWritesAcceptedTransitions(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w)

	p.ObserveTransition(transition(attendance.KindCheckIn, true))
	p.ObserveTransition(transition(attendance.KindCheckOut, false))
	p.ObserveTransition(transition(attendance.KindCheckOut, true))
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	p.ObserveTransition(transition(attendance.KindCheckIn, true))

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		t.Error("Writer not closed")
	}
	if len(w.msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(w.msgs))
	}
	var ev Event
	if err := json.Unmarshal(w.msgs[1].Value, &ev); err != nil {
		t.Fatalf("Bad message value: %v", err)
	}
	if ev.Type != "checkOut" || ev.Worksite != "Jurong" || ev.DailyKey != "w1_2024-03-04" {
		t.Errorf("Unexpected event %+v", ev)
	}
	if string(w.msgs[0].Key) != "w1" {
		t.Errorf("Expected worker key, got %q", w.msgs[0].Key)
	}
}

func TestPublisherSurvivesBrokerFailure(t *testing.T) {
	w := &fakeWriter{fail: true}
	p := newPublisher(w)
	p.ObserveTransition(transition(attendance.KindCheckIn, true))
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
