package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentboard/internal/domain/messaging"
)

func seedMessages(t *testing.T, repo *MessageRepository) {
	t.Helper()
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	msgs := []messaging.Message{
		{ID: "1", ListingID: "L1", SenderID: "U1", RecipientID: "U2", Body: "a", CreatedAt: base},
		{ID: "2", ListingID: "L1", SenderID: "U2", RecipientID: "U1", Body: "b", CreatedAt: base.Add(time.Minute)},
		{ID: "3", ListingID: "L2", SenderID: "U3", RecipientID: "U1", Body: "c", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "4", ListingID: "L2", SenderID: "U3", RecipientID: "U4", Body: "d", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range msgs {
		require.NoError(t, repo.Save(context.Background(), &msgs[i]))
	}
}

func TestMessageRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository()
	seedMessages(t, repo)

	all, err := repo.ForViewer(ctx, "U1")
	require.NoError(t, err)
	ids := []messaging.MessageID{}
	for _, m := range all {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []messaging.MessageID{"3", "2", "1"}, ids)

	l1, err := repo.ForListing(ctx, "L1", "U1")
	require.NoError(t, err)
	require.Len(t, l1, 2)
	assert.Equal(t, messaging.MessageID("1"), l1[0].ID)

	unread, err := repo.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)
}

func TestMessageRepository_MarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository()
	seedMessages(t, repo)

	n, err := repo.MarkRead(ctx, []messaging.MessageID{"1", "2", "missing"}, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only messages addressed to U1 flip")

	n, err = repo.MarkRead(ctx, []messaging.MessageID{"2"}, "U1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.MarkListingRead(ctx, "L2", "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unread, err := repo.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.Zero(t, unread)

	// saving a stale copy must not revert the read flag
	stale, err := repo.ByID(ctx, "2")
	require.NoError(t, err)
	stale.IsRead = false
	require.NoError(t, repo.Save(ctx, stale))
	reloaded, err := repo.ByID(ctx, "2")
	require.NoError(t, err)
	assert.True(t, reloaded.IsRead)
}

func TestMessageRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository()
	seedMessages(t, repo)

	require.NoError(t, repo.Delete(ctx, "2"))
	_, err := repo.ByID(ctx, "2")
	assert.ErrorIs(t, err, messaging.ErrMessageNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "2"), messaging.ErrMessageNotFound)

	m, err := repo.ByID(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "d", m.Body)
}
