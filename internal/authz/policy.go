// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package authz

// Objects protected by the enforcer.
const (
	ObjectPages     = "pages"
	ObjectEvents    = "events"
	ObjectChat      = "chat"
	ObjectDocuments = "documents"
	ObjectMembers   = "members"
	ObjectProfile   = "profile"
	ObjectSearch    = "search"
	ObjectAnalytics = "analytics"
)

// Actions.
const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionDelete  = "delete"
	ActionPublish = "publish"
	ActionManage  = "manage"
)

// defaultModel is the RBAC model used when no model file is configured.
const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// defaultPolicy grants permissions per role. Roles inherit through the g
// lines: admin > editor > member.
const defaultPolicy = `
# member
p, member, pages, read
p, member, events, read
p, member, search, read
p, member, profile, read
p, member, profile, write
p, member, chat, read
p, member, chat, write
p, member, documents, read
p, member, documents, write
p, member, documents, delete

# editor
p, editor, pages, write
p, editor, pages, delete
p, editor, pages, publish
p, editor, events, write
p, editor, events, delete
p, editor, events, publish

# admin
p, admin, members, *
p, admin, analytics, *
p, admin, documents, manage
p, admin, chat, manage

g, editor, member
g, admin, editor
`
