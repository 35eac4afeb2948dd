package scylla

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentboard/internal/domain/messaging"
)

func TestRow_ToMessage(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.FixedZone("CEST", 7200))
	r := row{ID: "m1", ListingID: "L1", SenderID: "U1", RecipientID: "U2", Body: "hej", IsRead: true, CreatedAt: at}

	msg := r.toMessage()
	assert.Equal(t, messaging.MessageID("m1"), msg.ID)
	assert.Equal(t, time.UTC, msg.CreatedAt.Location())
	assert.True(t, msg.IsRead)
	assert.Nil(t, msg.Contact)

	r.ContactEmail = "ana@example.com"
	require.NotNil(t, r.toMessage().Contact)
	assert.Len(t, r.dest(), 10)
}

func TestSchema(t *testing.T) {
	assert.Contains(t, keyspaceCQL("rentboard", 3), "'replication_factor': 3")
	stmts := tableCQL("rentboard")
	require.Len(t, stmts, 2)
	assert.True(t, strings.Contains(stmts[1], "CLUSTERING ORDER BY (created_at DESC"))
	assert.True(t, keyspacePattern.MatchString("rentboard_messages"))
	assert.False(t, keyspacePattern.MatchString("drop table;"))
}

func TestMessageStore_WithoutSession(t *testing.T) {
	s := NewMessageStore(nil, nil)
	_, err := s.ForViewer(context.Background(), "U1")
	assert.ErrorIs(t, err, errSessionMissing)
	assert.ErrorIs(t, s.Save(context.Background(), &messaging.Message{ID: "m"}), errSessionMissing)
}

func TestSaveStatements(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msg := messaging.Message{ID: "m1", ListingID: "L1", SenderID: "U1", RecipientID: "U2", Body: "hej", CreatedAt: at}

	fresh := saveStatements(msg, nil)
	require.Len(t, fresh, 3)
	assert.Equal(t, insertMessageCQL, fresh[0].cql)
	assert.Equal(t, false, fresh[0].args[8])

	existing := msg
	existing.IsRead = true
	existing.CreatedAt = at.Add(-time.Hour)
	original := msg
	stmts := saveStatements(msg, &existing)
	assert.Equal(t, original, msg)

	var deletes, inserts []statement
	for _, st := range stmts {
		switch st.cql {
		case deleteIndexCQL:
			deletes = append(deletes, st)
		case insertMessageCQL:
			assert.Equal(t, true, st.args[8], "read flag of the stored row survives")
		case insertIndexCQL:
			inserts = append(inserts, st)
		}
	}
	require.Len(t, deletes, 2)
	assert.Equal(t, []any{"U1", existing.CreatedAt, "m1"}, deletes[0].args)
	assert.Equal(t, []any{"U2", existing.CreatedAt, "m1"}, deletes[1].args)
	assert.Len(t, inserts, 2)

	same := saveStatements(msg, &messaging.Message{ID: "m1", SenderID: "U1", RecipientID: "U2", CreatedAt: at})
	for _, st := range same {
		assert.NotEqual(t, deleteIndexCQL, st.cql)
	}
}
