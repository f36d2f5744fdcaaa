// Package messagingtest provides a conformance suite for messaging.Store
// implementations.
package messagingtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/smsgate/svc/messaging"
)

// NewStoreFunc returns an empty store. Called once per subtest.
type NewStoreFunc func(t *testing.T) messaging.Store

var base = time.Date(2025, 4, 2, 15, 4, 5, 0, time.UTC)

// RunStoreSuite checks the Store contract.
func RunStoreSuite(t *testing.T, newStore NewStoreFunc) {
	t.Helper()

	t.Run("save and find by provider id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		msg := newMessage("+15551234567", "SM-find-1", base)
		require.NoError(t, store.SaveMessage(ctx, msg))

		got, err := store.FindMessageByProviderID(ctx, "SM-find-1")
		require.NoError(t, err)
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, messaging.DirectionInbound, got.Direction)
		assert.Equal(t, "+15551234567", got.ConversationPhone)
		assert.Equal(t, "hello", got.Body)
		assert.Equal(t, 2, got.Segments)
		assert.Equal(t, messaging.StatusReceived, got.Status)
		assert.Nil(t, got.ErrorDescription)
		assert.True(t, got.CreatedAt.Equal(base))

		_, err = store.FindMessageByProviderID(ctx, "SM-missing")
		assert.True(t, errors.Is(err, messaging.ErrMessageNotFound))
	})

	t.Run("duplicate provider id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SaveMessage(ctx, newMessage("+15551234567", "SM-dup", base)))
		err := store.SaveMessage(ctx, newMessage("+15551234567", "SM-dup", base))
		assert.ErrorIs(t, err, messaging.ErrDuplicateMessage)
	})

	t.Run("messages without provider id do not collide", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SaveMessage(ctx, newMessage("+15551234567", "", base)))
		require.NoError(t, store.SaveMessage(ctx, newMessage("+15551234567", "", base.Add(time.Second))))
	})

	t.Run("update status", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SaveMessage(ctx, newMessage("+15551234567", "SM-status", base)))

		desc := "30003: Unreachable destination handset"
		at := base.Add(time.Minute)
		require.NoError(t, store.UpdateMessageStatus(ctx, "SM-status", messaging.StatusUndelivered, &desc, at))

		got, err := store.FindMessageByProviderID(ctx, "SM-status")
		require.NoError(t, err)
		assert.Equal(t, messaging.StatusUndelivered, got.Status)
		require.NotNil(t, got.ErrorDescription)
		assert.Equal(t, desc, *got.ErrorDescription)
		assert.True(t, got.UpdatedAt.Equal(at))

		// A later callback without an error code keeps the stored description.
		later := at.Add(time.Minute)
		require.NoError(t, store.UpdateMessageStatus(ctx, "SM-status", messaging.StatusSent, nil, later))
		got, err = store.FindMessageByProviderID(ctx, "SM-status")
		require.NoError(t, err)
		assert.Equal(t, messaging.StatusSent, got.Status)
		require.NotNil(t, got.ErrorDescription)
		assert.Equal(t, desc, *got.ErrorDescription)
		assert.True(t, got.UpdatedAt.Equal(later))

		err = store.UpdateMessageStatus(ctx, "SM-unknown", messaging.StatusDelivered, nil, at)
		assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
	})

	t.Run("opt-out upsert keeps both timestamps", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		const number = "+15557654321"

		_, err := store.GetOptOut(ctx, number)
		assert.ErrorIs(t, err, messaging.ErrOptOutNotFound)

		require.NoError(t, store.RecordOptOut(ctx, number, base))
		rec, err := store.GetOptOut(ctx, number)
		require.NoError(t, err)
		assert.Equal(t, number, rec.PhoneNumber)
		assert.True(t, rec.IsOptedOut())
		assert.Nil(t, rec.OptedInAt)

		require.NoError(t, store.RecordOptIn(ctx, number, base.Add(time.Minute)))
		rec, err = store.GetOptOut(ctx, number)
		require.NoError(t, err)
		assert.False(t, rec.IsOptedOut())
		require.NotNil(t, rec.OptedOutAt)
		assert.True(t, rec.OptedOutAt.Equal(base))

		require.NoError(t, store.RecordOptOut(ctx, number, base.Add(2*time.Minute)))
		rec, err = store.GetOptOut(ctx, number)
		require.NoError(t, err)
		assert.True(t, rec.IsOptedOut())
	})

	t.Run("consent timestamps never move backwards", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		const number = "+15553334444"

		require.NoError(t, store.RecordOptOut(ctx, number, base))
		require.NoError(t, store.RecordOptIn(ctx, number, base.Add(time.Minute)))

		require.NoError(t, store.RecordOptOut(ctx, number, base.Add(-time.Minute)))
		require.NoError(t, store.RecordOptIn(ctx, number, base))

		rec, err := store.GetOptOut(ctx, number)
		require.NoError(t, err)
		require.NotNil(t, rec.OptedOutAt)
		require.NotNil(t, rec.OptedInAt)
		assert.True(t, rec.OptedOutAt.Equal(base))
		assert.True(t, rec.OptedInAt.Equal(base.Add(time.Minute)))
		assert.False(t, rec.IsOptedOut())
	})

	t.Run("list conversation returns the latest messages oldest first", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i, sid := range []string{"SM-c1", "SM-c2", "SM-c3"} {
			require.NoError(t, store.SaveMessage(ctx, newMessage("+15550001111", sid, base.Add(time.Duration(i)*time.Second))))
		}
		require.NoError(t, store.SaveMessage(ctx, newMessage("+15550002222", "SM-other", base)))

		all, err := store.ListConversation(ctx, "+15550001111", 10)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "SM-c1", all[0].ProviderMessageID)
		assert.Equal(t, "SM-c3", all[2].ProviderMessageID)

		latest, err := store.ListConversation(ctx, "+15550001111", 2)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, "SM-c2", latest[0].ProviderMessageID)
		assert.Equal(t, "SM-c3", latest[1].ProviderMessageID)

		none, err := store.ListConversation(ctx, "+15559999999", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func newMessage(number, providerID string, at time.Time) *messaging.Message {
	return &messaging.Message{
		ID:                uuid.New(),
		Direction:         messaging.DirectionInbound,
		ConversationPhone: number,
		From:              number,
		To:                "+15550000000",
		Body:              "hello",
		ProviderMessageID: providerID,
		Segments:          2,
		Status:            messaging.StatusReceived,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
}
