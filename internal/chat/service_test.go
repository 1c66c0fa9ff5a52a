// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/store"
	"github.com/tomtom215/memberhub/internal/websocket"
)

type directory map[string]bool

func (d directory) Exists(_ context.Context, id string) (bool, error) {
	return d[id], nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string // "member/type"
}

func (n *recordingNotifier) SendTo(memberID, messageType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, memberID+"/"+messageType)
}

func newTestService(t *testing.T, cfg config.ChatConfig) (*Service, *recordingNotifier) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	n := &recordingNotifier{}
	svc := NewService(NewMessageCollection(s), NewBlockCollection(s),
		directory{"alice": true, "bob": true, "carol": true}, n, cfg)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, n
}

func TestSend_Validation(t *testing.T) {
	svc, _ := newTestService(t, config.ChatConfig{MaxMessageLength: 10})
	ctx := context.Background()

	tests := []struct {
		name string
		from string
		to   string
		body string
		want error
	}{
		{"empty", "alice", "bob", "   ", ErrEmptyBody},
		{"too long", "alice", "bob", strings.Repeat("x", 11), ErrBodyTooLong},
		{"multibyte within limit", "alice", "bob", strings.Repeat("é", 10), nil},
		{"self", "alice", "alice", "hi", ErrSelf},
		{"unknown recipient", "alice", "mallory", "hi", ErrUnknownMember},
		{"ok", "alice", "bob", "hello", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, tt.from, tt.to, tt.body)
			if !errors.Is(err, tt.want) {
				t.Errorf("Send() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSend_NotifiesBothParties(t *testing.T) {
	svc, n := newTestService(t, config.ChatConfig{})
	msg, err := svc.Send(context.Background(), "alice", "bob", "hi bob")
	if err != nil {
		t.Fatal(err)
	}
	if msg.ConversationID != "alice:bob" {
		t.Errorf("ConversationID = %q", msg.ConversationID)
	}
	want := []string{"bob/" + websocket.MessageTypeChatMessage, "alice/" + websocket.MessageTypeChatMessage}
	if strings.Join(n.sent, ",") != strings.Join(want, ",") {
		t.Errorf("notifications = %v, want %v", n.sent, want)
	}
}

func TestBlocking(t *testing.T) {
	svc, _ := newTestService(t, config.ChatConfig{})
	ctx := context.Background()

	if _, err := svc.Block(ctx, "bob", "alice", "spam"); err != nil {
		t.Fatalf("Block() error = %v", err)
	}
	if _, err := svc.Block(ctx, "bob", "alice", "again"); !errors.Is(err, ErrAlreadyBlocked) {
		t.Errorf("duplicate Block() error = %v, want ErrAlreadyBlocked", err)
	}
	if _, err := svc.Block(ctx, "bob", "bob", ""); !errors.Is(err, ErrSelf) {
		t.Errorf("self Block() error = %v", err)
	}
	if _, err := svc.Block(ctx, "bob", "nobody", ""); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("unknown Block() error = %v", err)
	}

	// Either direction is blocked.
	if _, err := svc.Send(ctx, "alice", "bob", "hi"); !errors.Is(err, ErrBlocked) {
		t.Errorf("alice->bob error = %v, want ErrBlocked", err)
	}
	if _, err := svc.Send(ctx, "bob", "alice", "hi"); !errors.Is(err, ErrBlocked) {
		t.Errorf("bob->alice error = %v, want ErrBlocked", err)
	}
	if _, err := svc.Send(ctx, "alice", "carol", "hi"); err != nil {
		t.Errorf("alice->carol error = %v", err)
	}

	// The reverse pair is a separate record.
	if _, err := svc.Block(ctx, "alice", "bob", ""); err != nil {
		t.Errorf("reverse Block() error = %v", err)
	}

	blocks, err := svc.ListBlocks(ctx, "bob")
	if err != nil || len(blocks) != 1 || blocks[0].BlockedID != "alice" {
		t.Fatalf("ListBlocks() = %v, %v", blocks, err)
	}

	if err := svc.Unblock(ctx, "bob", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Unblock(ctx, "bob", "alice"); !errors.Is(err, ErrNotBlocked) {
		t.Errorf("second Unblock() error = %v", err)
	}
	if err := svc.Unblock(ctx, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if blocked, _ := svc.IsBlocked(ctx, "alice", "bob"); blocked {
		t.Error("pair still blocked after both unblocks")
	}
	if _, err := svc.Send(ctx, "alice", "bob", "hi again"); err != nil {
		t.Errorf("Send() after unblock error = %v", err)
	}
}

func TestConversationHistory(t *testing.T) {
	svc, _ := newTestService(t, config.ChatConfig{HistoryLimit: 3})
	ctx := context.Background()

	var sent []string
	for i, body := range []string{"one", "two", "three", "four", "five"} {
		from, to := "alice", "bob"
		if i%2 == 1 {
			from, to = to, from
		}
		m, err := svc.Send(ctx, from, to, body)
		if err != nil {
			t.Fatal(err)
		}
		sent = append(sent, m.ID)
	}
	if _, err := svc.Send(ctx, "alice", "carol", "other"); err != nil {
		t.Fatal(err)
	}

	msgs, err := svc.Conversation(ctx, "bob", "alice", 10, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want history limit 3", len(msgs))
	}
	if msgs[0].Body != "three" || msgs[2].Body != "five" {
		t.Errorf("got %s..%s, want three..five oldest first", msgs[0].Body, msgs[2].Body)
	}

	older, err := svc.Conversation(ctx, "alice", "bob", 2, msgs[0].CreatedAt)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 2 || older[0].Body != "one" || older[1].Body != "two" {
		t.Errorf("paging before = %v", older)
	}
}

func TestConversationsAndMarkRead(t *testing.T) {
	svc, n := newTestService(t, config.ChatConfig{})
	ctx := context.Background()

	mustSend := func(from, to, body string) {
		t.Helper()
		if _, err := svc.Send(ctx, from, to, body); err != nil {
			t.Fatal(err)
		}
	}
	mustSend("bob", "alice", "b1")
	mustSend("bob", "alice", "b2")
	mustSend("carol", "alice", "c1")
	mustSend("alice", "bob", "a1")

	convs, err := svc.Conversations(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("len = %d, want 2", len(convs))
	}
	if convs[0].PeerID != "bob" || convs[0].LastMessage.Body != "a1" || convs[0].Unread != 2 {
		t.Errorf("first conversation = %+v", convs[0])
	}
	if convs[1].PeerID != "carol" || convs[1].Unread != 1 {
		t.Errorf("second conversation = %+v", convs[1])
	}

	n.sent = nil
	marked, err := svc.MarkRead(ctx, "alice", "bob")
	if err != nil || marked != 2 {
		t.Fatalf("MarkRead() = %d, %v", marked, err)
	}
	if len(n.sent) != 1 || n.sent[0] != "bob/"+websocket.MessageTypeChatRead {
		t.Errorf("notifications = %v", n.sent)
	}
	if again, _ := svc.MarkRead(ctx, "alice", "bob"); again != 0 {
		t.Errorf("second MarkRead() = %d, want 0", again)
	}

	convs, _ = svc.Conversations(ctx, "alice")
	if convs[0].Unread != 0 {
		t.Errorf("unread after MarkRead = %d", convs[0].Unread)
	}
}

func TestMarkMessageRead_SkipsGoneAndRead(t *testing.T) {
	svc, _ := newTestService(t, config.ChatConfig{})
	ctx := context.Background()

	kept, err := svc.Send(ctx, "bob", "alice", "still here")
	if err != nil {
		t.Fatal(err)
	}
	gone, err := svc.Send(ctx, "bob", "alice", "deleted soon")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.messages.Delete(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"unread", kept.ID, true},
		{"already read", kept.ID, false},
		{"deleted", gone.ID, false},
	}
	for _, tt := range tests {
		got, err := svc.markMessageRead(ctx, tt.id, time.Now())
		if err != nil {
			t.Fatalf("%s: markMessageRead() error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: markMessageRead() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSend_RateLimited(t *testing.T) {
	svc, _ := newTestService(t, config.ChatConfig{SendRatePerSec: 0.001, SendBurst: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Send(ctx, "alice", "bob", "hi"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if _, err := svc.Send(ctx, "alice", "bob", "hi"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("third send error = %v, want ErrRateLimited", err)
	}
	if _, err := svc.Send(ctx, "bob", "alice", "hi"); err != nil {
		t.Errorf("other member limited too: %v", err)
	}
}

func TestSendLimiter_Prune(t *testing.T) {
	l := newSendLimiter(1, 1)
	now := time.Now()
	l.allow("old", now.Add(-2*time.Hour))
	l.allow("fresh", now)
	if removed := l.prune(now); removed != 1 {
		t.Errorf("prune() = %d, want 1", removed)
	}
	if _, ok := l.limiters["fresh"]; !ok {
		t.Error("fresh limiter pruned")
	}
}
