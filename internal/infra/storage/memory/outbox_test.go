package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentboard/internal/app/outbox"
)

func TestOutbox_FlushReleasesRecords(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "1", Name: "message.sent"}))
	require.NoError(t, box.Flush(ctx))
	assert.Empty(t, box.pending)
	assert.Empty(t, box.Delivered())

	rec := NewRecordingOutbox()
	require.NoError(t, rec.Add(ctx, appoutbox.EventRecord{ID: "1", Name: "message.sent"}))
	require.NoError(t, rec.Add(ctx, appoutbox.EventRecord{ID: "2", Name: "message.deleted"}))
	require.NoError(t, rec.Flush(ctx))
	delivered := rec.Delivered()
	require.Len(t, delivered, 2)
	assert.Equal(t, "message.deleted", delivered[1].Name)
}
