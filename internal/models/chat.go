// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

import "time"

// ChatMessage is a direct message between two members.
type ChatMessage struct {
	Base
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	RecipientID    string     `json:"recipient_id"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// ConversationID returns the stable identifier for the pair a, b regardless
// of argument order.
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// ChatBlock records that BlockerID no longer accepts messages from BlockedID.
// The (BlockerID, BlockedID) pair is unique.
type ChatBlock struct {
	Base
	BlockerID string `json:"blocker_id"`
	BlockedID string `json:"blocked_id"`
	Reason    string `json:"reason,omitempty"`
}

// PairKey is the unique index value for the block.
func (b *ChatBlock) PairKey() string {
	return b.BlockerID + ":" + b.BlockedID
}

// ConversationSummary is one entry of a member's inbox.
type ConversationSummary struct {
	ConversationID string       `json:"conversation_id"`
	PeerID         string       `json:"peer_id"`
	LastMessage    *ChatMessage `json:"last_message"`
	Unread         int          `json:"unread"`
}

// SendMessageRequest is the body of POST /api/v1/chat/messages.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,max=64"`
	Body        string `json:"body" validate:"required"`
}

// BlockRequest is the body of POST /api/v1/chat/blocks.
type BlockRequest struct {
	BlockedID string `json:"blocked_id" validate:"required,max=64"`
	Reason    string `json:"reason" validate:"max=500"`
}
