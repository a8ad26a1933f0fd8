package transport

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Message is one delivered outbox entry. Edits mutate Text in place.
type Message struct {
	ID       int64     `json:"id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
	EditedAt time.Time `json:"edited_at,omitempty"`
}

// Outbox is an in-memory Messenger keeping a per-chat message history that
// the HTTP surface exposes for polling.
type Outbox struct {
	mu     sync.Mutex
	nextID int64
	chats  map[int64][]*Message
}

func NewOutbox() *Outbox {
	return &Outbox{chats: make(map[int64][]*Message)}
}

func (o *Outbox) Send(_ context.Context, chatID int64, text string) (MessageRef, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	msg := &Message{ID: o.nextID, Text: text, SentAt: time.Now()}
	o.chats[chatID] = append(o.chats[chatID], msg)
	return MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

func (o *Outbox) Edit(_ context.Context, ref MessageRef, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, msg := range o.chats[ref.ChatID] {
		if msg.ID == ref.MessageID {
			if msg.Text == text {
				return ErrNotModified
			}
			msg.Text = text
			msg.EditedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("message %d not found in chat %d", ref.MessageID, ref.ChatID)
}

// Messages returns a copy of the chat history in delivery order.
func (o *Outbox) Messages(chatID int64) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Message, 0, len(o.chats[chatID]))
	for _, msg := range o.chats[chatID] {
		out = append(out, *msg)
	}
	return out
}

var _ Messenger = (*Outbox)(nil)
