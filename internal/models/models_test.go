// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package models

import (
	"testing"
	"time"
)

func TestConversationID_OrderIndependent(t *testing.T) {
	if ConversationID("alice", "bob") != ConversationID("bob", "alice") {
		t.Error("ConversationID should not depend on argument order")
	}
	if got := ConversationID("b", "a"); got != "a:b" {
		t.Errorf("ConversationID(b, a) = %q, want a:b", got)
	}
}

func TestIsValidRole(t *testing.T) {
	tests := map[string]bool{
		"member": true,
		"editor": true,
		"admin":  true,
		"viewer": false,
		"":       false,
		"ADMIN":  false,
	}
	for role, want := range tests {
		if got := IsValidRole(role); got != want {
			t.Errorf("IsValidRole(%q) = %v, want %v", role, got, want)
		}
	}
}

func TestEvent_IsDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"scheduled in past", Event{Status: EventStatusScheduled, PublishAt: &past}, true},
		{"scheduled exactly now", Event{Status: EventStatusScheduled, PublishAt: &now}, true},
		{"scheduled in future", Event{Status: EventStatusScheduled, PublishAt: &future}, false},
		{"draft", Event{Status: EventStatusDraft, PublishAt: &past}, false},
		{"scheduled without time", Event{Status: EventStatusScheduled}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsDue(now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMember_ViewOmitsPasswordHash(t *testing.T) {
	m := &Member{Base: NewBase(time.Now()), Email: "a@example.com", PasswordHash: "secret"}
	v := m.View()
	if v.ID != m.ID || v.Email != m.Email {
		t.Errorf("View() = %+v", v)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
