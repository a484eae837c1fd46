package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var created, assigned int
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		assigned++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if created != 2 {
		t.Errorf("created handlers ran %d times, want 2", created)
	}
	if assigned != 0 {
		t.Errorf("assigned handler ran %d times, want 0", assigned)
	}
}

func TestPublishContinuesPastHandlerError(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var reached bool
	d.Subscribe(EventSlaBreached, func(context.Context, Event) error {
		return errors.New("handler exploded")
	})
	d.Subscribe(EventSlaBreached, func(context.Context, Event) error {
		reached = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventSlaBreached}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reached {
		t.Error("second handler not invoked after first errored")
	}
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventTicketAnalyzed}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
