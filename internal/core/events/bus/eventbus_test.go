package bus

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe("asset.loaded", func(e Event) error {
		got = e
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent("asset.loaded", "cache", "tex/hero.png")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Data() != "tex/hero.png" || got.Source() != "cache" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Timestamp().IsZero() {
		t.Fatal("event has no timestamp")
	}
}

func TestPublishAsyncReturnsErrorChannel(t *testing.T) {
	b := New()
	handlerErr := errors.New("fail")
	if _, err := b.Subscribe("x", func(e Event) error { return handlerErr }); err != nil {
		t.Fatalf("sub: %v", err)
	}

	select {
	case err := <-b.PublishAsync(NewEvent("x", "src", nil)):
		if !errors.Is(err, handlerErr) {
			t.Fatalf("expected handler error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("async publish did not complete")
	}
}

func TestErrorsAreJoined(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "src", nil))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}
	if m := b.Metrics(); m.Errors != 1 || m.DeliveredHandlers != 2 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	sub, _ := b.Subscribe("x", func(Event) error {
		calls++
		return nil
	})

	_ = b.Publish(NewEvent("x", "src", nil))
	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	_ = sub.Cancel()
	_ = b.Publish(NewEvent("x", "src", nil))

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active")
	}
	if m := b.Metrics(); m.Subscribers != 0 || m.Published != 2 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if err := b.Unsubscribe(nil); err != nil {
		t.Fatalf("nil unsubscribe: %v", err)
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New()
	var mu sync.Mutex
	count := 0
	_, _ = b.Subscribe("x", func(Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Publish(NewEvent("x", "src", nil))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Fatalf("expected 50 deliveries, got %d", count)
	}
}
