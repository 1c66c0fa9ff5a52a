// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package chat implements one-to-one member messaging and user blocking.
//
// Messages are stored with a conversation ID derived from the sorted member
// pair and pushed to both parties' open websocket connections. A block in
// either direction stops new messages between the pair.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
	"github.com/tomtom215/memberhub/internal/websocket"
)

var (
	ErrEmptyBody      = errors.New("message body is empty")
	ErrBodyTooLong    = errors.New("message body is too long")
	ErrSelf           = errors.New("cannot message or block yourself")
	ErrUnknownMember  = errors.New("member not found")
	ErrBlocked        = errors.New("messaging between these members is blocked")
	ErrRateLimited    = errors.New("sending too fast")
	ErrAlreadyBlocked = errors.New("member already blocked")
	ErrNotBlocked     = errors.New("member is not blocked")

	errAlreadyRead = errors.New("message already read")
)

// MemberDirectory resolves member IDs. members.Service implements it.
type MemberDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Notifier pushes real-time messages to a member. websocket.Hub implements it.
type Notifier interface {
	SendTo(memberID, messageType string, data interface{})
}

// MessageCollection stores chat messages.
type MessageCollection = store.Collection[models.ChatMessage, *models.ChatMessage]

// BlockCollection stores block records.
type BlockCollection = store.Collection[models.ChatBlock, *models.ChatBlock]

// NewMessageCollection declares chat messages indexed by conversation and recipient.
func NewMessageCollection(s *store.Store) *MessageCollection {
	return store.NewCollection[models.ChatMessage](s, "chat_messages",
		store.Index[models.ChatMessage]{
			Name: "conversation",
			Key:  func(m *models.ChatMessage) string { return m.ConversationID },
		},
		store.Index[models.ChatMessage]{
			Name: "sender",
			Key:  func(m *models.ChatMessage) string { return m.SenderID },
		},
		store.Index[models.ChatMessage]{
			Name: "recipient",
			Key:  func(m *models.ChatMessage) string { return m.RecipientID },
		},
	)
}

// NewBlockCollection declares blocks with a unique blocker/blocked pair.
func NewBlockCollection(s *store.Store) *BlockCollection {
	return store.NewCollection[models.ChatBlock](s, "chat_blocks",
		store.Index[models.ChatBlock]{
			Name:   "pair",
			Unique: true,
			Key:    func(b *models.ChatBlock) string { return b.PairKey() },
		},
		store.Index[models.ChatBlock]{
			Name: "blocker",
			Key:  func(b *models.ChatBlock) string { return b.BlockerID },
		},
		store.Index[models.ChatBlock]{
			Name: "blocked",
			Key:  func(b *models.ChatBlock) string { return b.BlockedID },
		},
	)
}

// Service implements chat operations.
type Service struct {
	messages     *MessageCollection
	blocks       *BlockCollection
	members      MemberDirectory
	notifier     Notifier
	limiter      *sendLimiter
	maxLength    int
	historyLimit int
	now          func() time.Time
}

// NewService creates the chat service. notifier may be nil.
func NewService(messages *MessageCollection, blocks *BlockCollection, members MemberDirectory, notifier Notifier, cfg config.ChatConfig) *Service {
	maxLength := cfg.MaxMessageLength
	if maxLength <= 0 {
		maxLength = 4000
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{
		messages:     messages,
		blocks:       blocks,
		members:      members,
		notifier:     notifier,
		limiter:      newSendLimiter(cfg.SendRatePerSec, cfg.SendBurst),
		maxLength:    maxLength,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Send stores a message from one member to another and notifies both.
func (s *Service) Send(ctx context.Context, from, to, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	switch {
	case body == "":
		return nil, s.reject(ErrEmptyBody, "invalid")
	case utf8.RuneCountInString(body) > s.maxLength:
		return nil, s.reject(ErrBodyTooLong, "invalid")
	case from == to:
		return nil, s.reject(ErrSelf, "invalid")
	}

	if err := s.requireMember(ctx, to); err != nil {
		return nil, err
	}

	blocked, err := s.IsBlocked(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, s.reject(ErrBlocked, "blocked")
	}

	now := s.now()
	if !s.limiter.allow(from, now) {
		return nil, s.reject(ErrRateLimited, "rate_limited")
	}

	msg := &models.ChatMessage{
		Base:           models.NewBase(now),
		ConversationID: models.ConversationID(from, to),
		SenderID:       from,
		RecipientID:    to,
		Body:           body,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	metrics.ChatMessagesSent.Inc()

	s.notify(to, websocket.MessageTypeChatMessage, msg)
	s.notify(from, websocket.MessageTypeChatMessage, msg)
	return msg, nil
}

func (s *Service) reject(err error, reason string) error {
	metrics.ChatMessagesRejected.WithLabelValues(reason).Inc()
	return err
}

func (s *Service) notify(memberID, messageType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.SendTo(memberID, messageType, data)
	}
}

func (s *Service) requireMember(ctx context.Context, id string) error {
	ok, err := s.members.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup member: %w", err)
	}
	if !ok {
		return ErrUnknownMember
	}
	return nil
}

// Conversation returns up to limit messages between a and b created before
// before (zero means now), oldest first.
func (s *Service) Conversation(ctx context.Context, a, b string, limit int, before time.Time) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	msgs, err := s.messages.FindByIndex(ctx, "conversation", models.ConversationID(a, b))
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	filtered := msgs[:0]
	for _, m := range msgs {
		if before.IsZero() || m.CreatedAt.Before(before) {
			filtered = append(filtered, m)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// Conversations returns one summary per peer, most recent first.
func (s *Service) Conversations(ctx context.Context, memberID string) ([]models.ConversationSummary, error) {
	sent, err := s.messages.FindByIndex(ctx, "sender", memberID)
	if err != nil {
		return nil, fmt.Errorf("load sent messages: %w", err)
	}
	received, err := s.messages.FindByIndex(ctx, "recipient", memberID)
	if err != nil {
		return nil, fmt.Errorf("load received messages: %w", err)
	}

	byConversation := make(map[string]*models.ConversationSummary)
	for _, m := range append(sent, received...) {
		peer := m.RecipientID
		if peer == memberID {
			peer = m.SenderID
		}
		sum, ok := byConversation[m.ConversationID]
		if !ok {
			sum = &models.ConversationSummary{ConversationID: m.ConversationID, PeerID: peer}
			byConversation[m.ConversationID] = sum
		}
		if sum.LastMessage == nil || m.CreatedAt.After(sum.LastMessage.CreatedAt) {
			sum.LastMessage = m
		}
		if m.RecipientID == memberID && m.ReadAt == nil {
			sum.Unread++
		}
	}

	out := make([]models.ConversationSummary, 0, len(byConversation))
	for _, sum := range byConversation {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}

// MarkRead marks every unread message from peer to memberID as read and
// returns how many changed.
func (s *Service) MarkRead(ctx context.Context, memberID, peer string) (int, error) {
	convID := models.ConversationID(memberID, peer)
	msgs, err := s.messages.FindByIndex(ctx, "conversation", convID)
	if err != nil {
		return 0, fmt.Errorf("load conversation: %w", err)
	}

	now := s.now().UTC()
	marked := 0
	for _, m := range msgs {
		if m.RecipientID != memberID || m.ReadAt != nil {
			continue
		}
		ok, err := s.markMessageRead(ctx, m.ID, now)
		if err != nil {
			return marked, err
		}
		if ok {
			marked++
		}
	}

	if marked > 0 {
		s.notify(peer, websocket.MessageTypeChatRead, map[string]string{
			"conversation_id": convID,
			"reader_id":       memberID,
		})
	}
	return marked, nil
}

// markMessageRead sets ReadAt on one message. It reports false when the
// message was deleted or already read in the meantime.
func (s *Service) markMessageRead(ctx context.Context, id string, now time.Time) (bool, error) {
	_, err := s.messages.Modify(ctx, id, func(doc *models.ChatMessage) error {
		if doc.ReadAt != nil {
			return errAlreadyRead
		}
		doc.ReadAt = &now
		return nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errAlreadyRead):
		return false, nil
	default:
		return false, fmt.Errorf("mark read: %w", err)
	}
}

// Block stops messages between blocker and blocked. Each pair can only be
// blocked once per direction.
func (s *Service) Block(ctx context.Context, blocker, blocked, reason string) (*models.ChatBlock, error) {
	if blocker == blocked {
		return nil, ErrSelf
	}
	if err := s.requireMember(ctx, blocked); err != nil {
		return nil, err
	}

	b := &models.ChatBlock{
		Base:      models.NewBase(s.now()),
		BlockerID: blocker,
		BlockedID: blocked,
		Reason:    strings.TrimSpace(reason),
	}
	if err := s.blocks.Insert(ctx, b); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyBlocked
		}
		return nil, fmt.Errorf("store block: %w", err)
	}
	logging.Ctx(ctx).Info().Str("blocked_id", blocked).Msg("Member blocked")
	return b, nil
}

// Unblock removes blocker's block on blocked.
func (s *Service) Unblock(ctx context.Context, blocker, blocked string) error {
	b, err := s.blocks.FindOne(ctx, "pair", (&models.ChatBlock{BlockerID: blocker, BlockedID: blocked}).PairKey())
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotBlocked
	}
	if err != nil {
		return fmt.Errorf("find block: %w", err)
	}
	if err := s.blocks.Delete(ctx, b.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// ListBlocks returns the members blocker has blocked, newest first.
func (s *Service) ListBlocks(ctx context.Context, blocker string) ([]*models.ChatBlock, error) {
	blocks, err := s.blocks.FindByIndex(ctx, "blocker", blocker)
	if err != nil {
		return nil, err
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].CreatedAt.After(blocks[j].CreatedAt)
	})
	return blocks, nil
}

// IsBlocked reports whether either member has blocked the other.
func (s *Service) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		key := (&models.ChatBlock{BlockerID: pair[0], BlockedID: pair[1]}).PairKey()
		_, err := s.blocks.FindOne(ctx, "pair", key)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("check block: %w", err)
		}
	}
	return false, nil
}

// PruneLimiters forgets send limiters for members idle over an hour.
func (s *Service) PruneLimiters() int {
	return s.limiter.prune(s.now())
}
