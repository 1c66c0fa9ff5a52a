// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package auth provides authentication for the Memberhub API, frontend and admin portal.

Key Components:

  - JWTManager: HS256 token generation and validation. Tokens carry the
    member ID (sub), display name, email, roles and membership tier.
  - DecodeClaimsUnverified: reads a token's claims without checking the
    signature. The admin portal uses it to decide what to render before the
    API verifies the token on every proxied call.
  - HashPassword / CheckPassword: bcrypt password hashing.
  - Middleware: Authenticate, Optional, RequireRole and RequireAPIKey for chi.
  - Subject: the authenticated member attached to the request context.

Token Transport:

Browsers hold the token in the HttpOnly "token" cookie set by the frontend
login route. API clients and the proxy send it as "Authorization: Bearer".
Authenticate accepts either, header first.

Roles:

Role checks are plain string membership tests. "admin" passes every
RequireRole check.
*/
package auth
