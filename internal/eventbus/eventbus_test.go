package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("hello")
	v := <-ch
	if v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe(ch)
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestTypedBusFanOut(t *testing.T) {
	bus := NewTyped[int]()
	a := bus.Subscribe()
	b := bus.Subscribe()
	bus.Publish(7)
	if v := <-a; v != 7 {
		t.Fatalf("a got %d", v)
	}
	if v := <-b; v != 7 {
		t.Fatalf("b got %d", v)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	bus := NewTypedWithBuffer[int](1)
	ch := bus.Subscribe()
	bus.Publish(1)
	bus.Publish(2)
	bus.Publish(3)
	if bus.Dropped() != 2 {
		t.Fatalf("expected 2 dropped got %d", bus.Dropped())
	}
	if v := <-ch; v != 1 {
		t.Fatalf("expected first event kept got %d", v)
	}
}

func TestBusClose(t *testing.T) {
	bus := NewTyped[string]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	bus.Publish("ignored")
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatalf("expected subscribe after close to return a closed channel")
	}
}

func TestUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
