// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
)

func newTestEnforcer(t *testing.T, cfg config.CasbinConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEnforcer_RoleHierarchy(t *testing.T) {
	e := newTestEnforcer(t, config.CasbinConfig{DefaultRole: "member", CacheEnabled: true, CacheTTL: time.Minute})

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{"member", ObjectPages, ActionRead, true},
		{"member", ObjectPages, ActionWrite, false},
		{"member", ObjectChat, ActionWrite, true},
		{"member", ObjectMembers, ActionRead, false},
		{"editor", ObjectPages, ActionPublish, true},
		{"editor", ObjectChat, ActionWrite, true},
		{"editor", ObjectMembers, ActionManage, false},
		{"admin", ObjectMembers, ActionManage, true},
		{"admin", ObjectMembers, ActionRead, true},
		{"admin", ObjectEvents, ActionPublish, true},
		{"admin", ObjectDocuments, ActionManage, true},
		{"editor", ObjectDocuments, ActionManage, false},
		{"unknown", ObjectPages, ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object+"/"+tt.action, func(t *testing.T) {
			got, err := e.EnforceWithRoles("member-id", []string{tt.role}, tt.object, tt.action)
			if err != nil {
				t.Fatalf("EnforceWithRoles() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EnforceWithRoles(%s, %s, %s) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
			}
		})
	}
}

func TestEnforcer_DefaultRoleForRoleless(t *testing.T) {
	e := newTestEnforcer(t, config.CasbinConfig{DefaultRole: "member"})
	allowed, err := e.EnforceWithRoles("x", nil, ObjectEvents, ActionRead)
	if err != nil || !allowed {
		t.Errorf("roleless subject should get member access: %v, %v", allowed, err)
	}

	strict := newTestEnforcer(t, config.CasbinConfig{})
	allowed, _ = strict.EnforceWithRoles("x", nil, ObjectEvents, ActionRead)
	if allowed {
		t.Error("without a default role, roleless subject should be denied")
	}
}

func TestEnforcer_AddRoleForUserInvalidatesCache(t *testing.T) {
	e := newTestEnforcer(t, config.CasbinConfig{CacheEnabled: true, CacheTTL: time.Minute})

	if ok, _ := e.Enforce("user-1", ObjectPages, ActionWrite); ok {
		t.Fatal("user-1 should not write pages yet")
	}
	if _, err := e.AddRoleForUser("user-1", "editor"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Enforce("user-1", ObjectPages, ActionWrite); !ok {
		t.Error("cached deny survived role assignment")
	}
	roles, _ := e.GetRolesForUser("user-1")
	if len(roles) != 1 || roles[0] != "editor" {
		t.Errorf("GetRolesForUser() = %v", roles)
	}
}

func TestEnforcer_PolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(path, []byte("p, member, pages, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := newTestEnforcer(t, config.CasbinConfig{PolicyPath: path})
	if ok, _ := e.Enforce("member", ObjectPages, ActionRead); !ok {
		t.Error("file policy should allow member pages read")
	}
	if ok, _ := e.Enforce("member", ObjectChat, ActionWrite); ok {
		t.Error("file policy replaces the embedded one")
	}
	if err := e.LoadPolicy(); err != nil {
		t.Errorf("LoadPolicy() error = %v", err)
	}

	embedded := newTestEnforcer(t, config.CasbinConfig{PolicyPath: filepath.Join(dir, "missing.csv")})
	if err := embedded.LoadPolicy(); !errors.Is(err, ErrNoAdapter) {
		t.Errorf("LoadPolicy() on embedded policy error = %v, want ErrNoAdapter", err)
	}
}

func TestDecisionCache(t *testing.T) {
	c, err := newDecisionCache(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.close()

	c.set("alice", ObjectPages, ActionRead, true)
	c.set("bob", ObjectPages, ActionRead, false)
	if allowed, ok := c.get("alice", ObjectPages, ActionRead); !ok || !allowed {
		t.Errorf("get(alice) = %v, %v", allowed, ok)
	}
	if allowed, ok := c.get("bob", ObjectPages, ActionRead); !ok || allowed {
		t.Errorf("get(bob) = %v, %v", allowed, ok)
	}

	c.forgetMember("alice")
	if _, ok := c.get("alice", ObjectPages, ActionRead); ok {
		t.Error("forgetMember left alice's decision reachable")
	}
	if _, ok := c.get("bob", ObjectPages, ActionRead); !ok {
		t.Error("forgetMember dropped another member's decision")
	}

	// New decisions after forgetting are cached under the next generation.
	c.set("alice", ObjectPages, ActionRead, false)
	if allowed, ok := c.get("alice", ObjectPages, ActionRead); !ok || allowed {
		t.Errorf("get(alice) after re-set = %v, %v", allowed, ok)
	}

	c.reset()
	if _, ok := c.get("bob", ObjectPages, ActionRead); ok {
		t.Error("reset left decisions behind")
	}
}

func TestMiddleware_Authorize(t *testing.T) {
	mw := NewMiddleware(newTestEnforcer(t, config.CasbinConfig{}))
	handler := mw.Authorize(ObjectPages, ActionWrite)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		subject *auth.Subject
		want    int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &auth.Subject{ID: "1", Roles: []string{"member"}}, http.StatusForbidden},
		{"editor", &auth.Subject{ID: "1", Roles: []string{"editor"}}, http.StatusNoContent},
		{"admin", &auth.Subject{ID: "1", Roles: []string{"admin"}}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.subject != nil {
				r = r.WithContext(auth.ContextWithSubject(r.Context(), tt.subject))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	if mw.Can(nil, ObjectPages, ActionRead) {
		t.Error("Can(nil) should be false")
	}
	if !mw.Can(&auth.Subject{Roles: []string{"member"}}, ObjectPages, ActionRead) {
		t.Error("member should read pages")
	}
}
