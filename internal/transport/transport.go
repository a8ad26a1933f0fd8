// Package transport abstracts the messaging surface that delivers command
// replies and live-status renders to submitters.
package transport

import (
	"context"
	"errors"
)

// ErrNotModified is returned by Edit when the rendered text matches the
// message's current content. Callers treat it as success.
var ErrNotModified = errors.New("message is not modified")

// MessageRef identifies a delivered message so it can be edited in place.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Messenger delivers text to a chat and supports edit-in-place rendering.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string) error
}
