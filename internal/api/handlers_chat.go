// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/websocket"
)

// ListConversations returns the caller's conversations, latest first.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	convs, err := h.chat.Conversations(r.Context(), subject.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if convs == nil {
		convs = []models.ConversationSummary{}
	}
	respondData(w, http.StatusOK, convs, start)
}

// GetConversation returns messages exchanged with a peer.
//
// Query parameters: limit, before (RFC3339, exclusive).
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "before must be an RFC3339 timestamp", nil)
			return
		}
		before = t
	}

	subject := auth.SubjectFromContext(r.Context())
	limit := getIntParam(r, "limit", h.defaultPageSize)
	msgs, err := h.chat.Conversation(r.Context(), subject.ID, chi.URLParam(r, "peer"), limit, before)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	respondData(w, http.StatusOK, msgs, start)
}

// MarkConversationRead marks the peer's messages to the caller as read.
func (h *Handler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	n, err := h.chat.MarkRead(r.Context(), subject.ID, chi.URLParam(r, "peer"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int{"marked": n}, start)
}

// SendMessage stores a message and pushes it to the recipient.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subject := auth.SubjectFromContext(r.Context())
	msg, err := h.chat.Send(r.Context(), subject.ID, req.RecipientID, req.Body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, msg, start)
}

// ListBlocks returns the members the caller has blocked.
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	blocks, err := h.chat.ListBlocks(r.Context(), subject.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []*models.ChatBlock{}
	}
	respondData(w, http.StatusOK, blocks, start)
}

// BlockMember blocks another member in both directions.
func (h *Handler) BlockMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.BlockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subject := auth.SubjectFromContext(r.Context())
	block, err := h.chat.Block(r.Context(), subject.ID, req.BlockedID, req.Reason)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, block, start)
}

// UnblockMember lifts the caller's block.
func (h *Handler) UnblockMember(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	if err := h.chat.Unblock(r.Context(), subject.ID, chi.URLParam(r, "member")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"unblocked": true}, start)
}

// ChatWebSocket upgrades the connection and registers it with the hub for
// chat_message and event_published pushes.
func (h *Handler) ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	subject := auth.SubjectFromContext(r.Context())

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, subject.ID)
	h.hub.Register <- client
	client.Start()

	logging.Ctx(r.Context()).Debug().Str("member_id", subject.ID).Msg("WebSocket client connected")
}
