// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/memberhub/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func createTestClient(hub *Hub, memberID string) *Client {
	return &Client{id: clientIDCounter.Add(1), memberID: memberID, hub: hub, send: make(chan Message, sendQueueSize)}
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(500 * time.Millisecond):
		return Message{}, false
	}
}

func TestHub_SendToTargetsMember(t *testing.T) {
	hub := setupHub(t)
	alice1 := createTestClient(hub, "alice")
	alice2 := createTestClient(hub, "alice")
	bob := createTestClient(hub, "bob")
	for _, c := range []*Client{alice1, alice2, bob} {
		hub.Register <- c
	}

	hub.SendTo("alice", MessageTypeChatMessage, map[string]string{"body": "hi"})

	for _, c := range []*Client{alice1, alice2} {
		msg, ok := receive(t, c)
		if !ok || msg.Type != MessageTypeChatMessage {
			t.Errorf("alice client %d got %+v, %v", c.ID(), msg, ok)
		}
	}
	select {
	case msg := <-bob.send:
		t.Errorf("bob received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}

	if !hub.IsOnline("alice") || hub.IsOnline("carol") {
		t.Error("IsOnline mismatch")
	}
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	hub := setupHub(t)
	clients := []*Client{createTestClient(hub, "a"), createTestClient(hub, "b"), createTestClient(hub, "c")}
	for _, c := range clients {
		hub.Register <- c
	}

	hub.BroadcastJSON(MessageTypeEventPublished, map[string]string{"id": "e1"})
	for _, c := range clients {
		if msg, ok := receive(t, c); !ok || msg.Type != MessageTypeEventPublished {
			t.Errorf("client %s got %+v, %v", c.MemberID(), msg, ok)
		}
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := setupHub(t)
	c := createTestClient(hub, "alice")
	hub.Register <- c
	hub.Unregister <- c
	hub.Unregister <- c // second unregister is a no-op

	if _, ok := receive(t, c); ok {
		t.Error("send channel should be closed")
	}
	if hub.GetClientCount() != 0 || hub.IsOnline("alice") {
		t.Error("client still tracked after unregister")
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := setupHub(t)
	c := createTestClient(hub, "slow")
	c.send = make(chan Message) // unbuffered, nobody reading
	hub.Register <- c

	hub.SendTo("slow", MessageTypeChatMessage, nil)
	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Error("slow client should be removed")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	c := createTestClient(hub, "alice")
	hub.Register <- c
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext() = %v, want context.Canceled", err)
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Errorf("got %s", got)
	}
	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("got %s", got)
	}
}

func TestClient_PingPongOverConnection(t *testing.T) {
	hub := setupHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, "alice")
		hub.Register <- client
		client.Start()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("got %q, want pong", msg.Type)
	}
}

func TestMarshalMessage(t *testing.T) {
	b, err := MarshalMessage(Message{Type: MessageTypeChatRead, Data: map[string]string{"conversation_id": "a:b"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"type":"chat_read"`) {
		t.Errorf("unexpected JSON %s", b)
	}
}
