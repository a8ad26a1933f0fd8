package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxSendAndEdit(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutbox()

	ref, err := outbox.Send(ctx, 7, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(7), ref.ChatID)

	require.NoError(t, outbox.Edit(ctx, ref, "updated"))

	msgs := outbox.Messages(7)
	require.Len(t, msgs, 1)
	assert.Equal(t, "updated", msgs[0].Text)
	assert.False(t, msgs[0].EditedAt.IsZero())
}

func TestOutboxEditUnchangedText(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutbox()

	ref, err := outbox.Send(ctx, 1, "same")
	require.NoError(t, err)

	err = outbox.Edit(ctx, ref, "same")
	assert.ErrorIs(t, err, ErrNotModified)
}

func TestOutboxEditUnknownMessage(t *testing.T) {
	outbox := NewOutbox()
	err := outbox.Edit(context.Background(), MessageRef{ChatID: 1, MessageID: 42}, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotModified)
}

func TestOutboxChatsAreIsolated(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutbox()

	_, err := outbox.Send(ctx, 1, "one")
	require.NoError(t, err)
	_, err = outbox.Send(ctx, 2, "two")
	require.NoError(t, err)

	require.Len(t, outbox.Messages(1), 1)
	require.Len(t, outbox.Messages(2), 1)
	assert.Equal(t, "one", outbox.Messages(1)[0].Text)
}
