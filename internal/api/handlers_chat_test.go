// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/websocket"
)

type chatFrame struct {
	Type string             `json:"type"`
	Data models.ChatMessage `json:"data"`
}

func dialChat(t *testing.T, srv *httptest.Server, token, origin string) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	header.Set(auth.APIKeyHeader, testAPIKey)
	header.Set("Origin", origin)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/chat/ws", header)
}

func TestChatWebSocket_DeliversMessages(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken()
	alice, aliceID := env.register("alice@example.com")
	bob, bobID := env.register("bob@example.com")
	env.setTier(admin, aliceID, "basic")
	env.setTier(admin, bobID, "basic")

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	conn, _, err := dialChat(t, srv, alice, srv.URL)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The pong arrives only after the hub has registered the client.
	if err := conn.WriteJSON(websocket.Message{Type: websocket.MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	var pong websocket.Message
	if err := conn.ReadJSON(&pong); err != nil || pong.Type != websocket.MessageTypePong {
		t.Fatalf("pong = %+v, %v", pong, err)
	}

	rec := env.do(http.MethodPost, "/api/v1/chat/messages", bob, models.SendMessageRequest{RecipientID: aliceID, Body: "are you coming?"})
	expectStatus(t, rec, http.StatusCreated)

	var frame chatFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if frame.Type != websocket.MessageTypeChatMessage || frame.Data.SenderID != bobID || frame.Data.Body != "are you coming?" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestChatWebSocket_Rejections(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken()
	free, _ := env.register("carol@example.com")
	basic, basicID := env.register("dave@example.com")
	env.setTier(admin, basicID, "basic")

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	tests := []struct {
		name   string
		token  string
		origin string
		status int
	}{
		{"anonymous", "", srv.URL, http.StatusUnauthorized},
		{"tier without chat", free, srv.URL, http.StatusForbidden},
		{"foreign origin", basic, "https://evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialChat(t, srv, tt.token, tt.origin)
			if err == nil {
				conn.Close()
				t.Fatal("dial succeeded")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response = %v, want status %d", resp, tt.status)
			}
		})
	}
}
