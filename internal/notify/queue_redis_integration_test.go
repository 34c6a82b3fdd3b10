//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stilltrue/internal/notify"
	id "stilltrue/pkg/domain"
	"stilltrue/pkg/testutil/containers"
)

func TestRedisQueueRoundTrip(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() {
		_ = rc.Client.Close()
		_ = rc.Container.Terminate(context.Background())
	})

	ctx := context.Background()
	queue := notify.NewRedisQueue(rc.Client, "")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deliveries := []notify.Delivery{
		{
			Kind:               notify.KindRequestOpened,
			RequestID:          id.NewRequestID(),
			ClaimID:            id.NewClaimID(),
			RecipientProfileID: id.NewProfileID(),
			RecipientEmail:     "member@acme.test",
			QueuedAt:           now,
		},
		{
			Kind:               notify.KindReminder,
			RequestID:          id.NewRequestID(),
			ClaimID:            id.NewClaimID(),
			RecipientProfileID: id.NewProfileID(),
			RecipientEmail:     "other@acme.test",
			QueuedAt:           now,
		},
	}
	require.NoError(t, queue.Dispatch(ctx, deliveries))

	length, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, length)

	// The external sender consumes with BRPOP, so the first delivery pushed
	// is the first popped.
	raw, err := rc.Client.BRPop(ctx, time.Second, notify.DefaultQueueKey).Result()
	require.NoError(t, err)
	require.Len(t, raw, 2)

	var popped notify.Delivery
	require.NoError(t, json.Unmarshal([]byte(raw[1]), &popped))
	assert.Equal(t, deliveries[0].RequestID, popped.RequestID)
	assert.Equal(t, deliveries[0].RecipientEmail, popped.RecipientEmail)
	assert.Equal(t, notify.KindRequestOpened, popped.Kind)
}

func TestRedisQueueDispatchEmptyIsNoop(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() {
		_ = rc.Client.Close()
		_ = rc.Container.Terminate(context.Background())
	})

	ctx := context.Background()
	queue := notify.NewRedisQueue(rc.Client, "empty-test")

	require.NoError(t, queue.Dispatch(ctx, nil))

	length, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, length)
}
