package store

import (
	"sync"
	"testing"
	"time"
)

func TestFeedDeliversInPublishOrder(t *testing.T) {
	feed := NewFeed()
	got := make(chan Change, 16)
	unsubscribe := feed.Subscribe(nil, func(c Change) { got <- c })
	defer unsubscribe()

	for i, id := range []string{"a", "b", "c"} {
		feed.Publish(Change{Collection: CheckIns, Kind: ChangeKind(i % 2), ID: id})
	}

	for _, want := range []string{"a", "b", "c"} {
		select {
		case c := <-got:
			if c.ID != want {
				t.Fatalf("Expected %s, got %s", want, c.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for %s", want)
		}
	}
}

func TestFeedFilter(t *testing.T) {
	feed := NewFeed()
	got := make(chan Change, 16)
	unsubscribe := feed.Subscribe(func(c Change) bool { return c.Collection == Worksites }, func(c Change) { got <- c })
	defer unsubscribe()

	feed.Publish(
		Change{Collection: CheckIns, ID: "record"},
		Change{Collection: Worksites, ID: "site"},
	)

	select {
	case c := <-got:
		if c.ID != "site" {
			t.Fatalf("Filter let %s through", c.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for worksite change")
	}
	select {
	case c := <-got:
		t.Fatalf("Unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeedUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	feed := NewFeed()
	var mu sync.Mutex
	count := 0
	unsubscribe := feed.Subscribe(nil, func(Change) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	unsubscribe()
	unsubscribe()

	if feed.Len() != 0 {
		t.Fatalf("Expected no subscribers, got %d", feed.Len())
	}
	feed.Publish(Change{Collection: CheckIns, ID: "late"})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("Expected no deliveries after unsubscribe, got %d", count)
	}
}

func TestFeedSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	feed := NewFeed()
	release := make(chan struct{})
	unsubscribe := feed.Subscribe(nil, func(Change) { <-release })
	defer unsubscribe()
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			feed.Publish(Change{Collection: CheckIns})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestChangeKindString(t *testing.T) {
	cases := map[ChangeKind]string{
		ChildAdded:    "added",
		ChildChanged:  "changed",
		ChildRemoved:  "removed",
		ChangeKind(9): "ChangeKind(9)",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d: expected %q, got %q", uint8(k), want, got)
		}
	}
}
