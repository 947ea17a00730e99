package events

import (
	"context"
	"errors"
	"testing"

	"github.com/fadedpez/eldorado/pkg/entities"
	"github.com/stretchr/testify/assert"
)

func TestPublishDelivers(t *testing.T) {
	d := NewDispatcher(nil)
	ctx := context.Background()

	var received []*entities.Event
	d.Subscribe(entities.EventTypeWagerSettled, func(ctx context.Context, evt *entities.Event) error {
		received = append(received, evt)
		return nil
	})

	d.Publish(ctx, &entities.Event{Type: entities.EventTypeWagerSettled, UserID: "user-1"})

	assert.Len(t, received, 1)
	assert.NotEmpty(t, received[0].ID, "an ID is assigned on publish")
	assert.False(t, received[0].OccurredAt.IsZero())
	assert.Zero(t, d.PendingCount())
}

func TestPublishIgnoresOtherTypes(t *testing.T) {
	d := NewDispatcher(nil)

	called := false
	d.Subscribe(entities.EventTypeSpinAccepted, func(ctx context.Context, evt *entities.Event) error {
		called = true
		return nil
	})

	d.Publish(context.Background(), &entities.Event{Type: entities.EventTypeWagerSettled})
	assert.False(t, called)
}

func TestFailedDeliveryRetried(t *testing.T) {
	d := NewDispatcher(nil)
	ctx := context.Background()

	attempts := 0
	d.Subscribe(entities.EventTypeWagerSettled, func(ctx context.Context, evt *entities.Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	d.Publish(ctx, &entities.Event{Type: entities.EventTypeWagerSettled})
	assert.Equal(t, 1, d.PendingCount())

	d.Retry(ctx)
	assert.Equal(t, 1, d.PendingCount(), "still failing, stays queued")

	d.Retry(ctx)
	assert.Zero(t, d.PendingCount())
	assert.Equal(t, 3, attempts)
}

func TestPublishSurvivesOneFailingHandler(t *testing.T) {
	d := NewDispatcher(nil)
	ctx := context.Background()

	delivered := false
	d.Subscribe(entities.EventTypeWagerSettled, func(ctx context.Context, evt *entities.Event) error {
		return errors.New("boom")
	})
	d.Subscribe(entities.EventTypeWagerSettled, func(ctx context.Context, evt *entities.Event) error {
		delivered = true
		return nil
	})

	d.Publish(ctx, &entities.Event{Type: entities.EventTypeWagerSettled})

	assert.True(t, delivered, "one failing consumer does not block the others")
	assert.Equal(t, 1, d.PendingCount())
}
