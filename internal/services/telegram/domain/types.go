// Package domain defines the inbound Telegram wire types and webhook ports
package domain

import "context"

// Update is one inbound webhook payload. Only message updates are handled,
// everything else is acknowledged and dropped
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *Peer  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Peer identifies the sender of a message
type Peer struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// Chat identifies where the reply goes
type Chat struct {
	ID int64 `json:"id"`
}

// Reply is an outbound message produced by a handled update
type Reply struct {
	ChatID int64
	Text   string
}

// HandlerPort turns an update into a reply. A nil reply means nothing to say
type HandlerPort interface {
	HandleUpdate(ctx context.Context, u Update) *Reply
}
