// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package main is the entry point for the Memberhub server.

Memberhub is a self-hosted member portal: a public site with CMS pages,
events and search, member-to-member chat, a document library and an admin
portal, all backed by a single JSON API.

# Server Roles

One binary serves every surface. SERVER_ROLE selects which:

	api       /api/v1 backend, the only process that opens the store
	frontend  public site, proxying /api/* to the backend
	admin     admin portal under /admin, proxying /admin/api/* to the backend
	all       everything in one process (default)

Frontend and admin processes reach the backend at UPSTREAM_BASE_URL and
authenticate with UPSTREAM_API_KEY, which must be one of the backend's
API_KEYS.

# Application Architecture

Long-running components run under a suture supervisor tree:

	memberhub
	├── jobs-layer
	│   ├── scheduler (scheduled event publishing, chat limiter pruning)
	│   └── analytics-consumer (when ANALYTICS_ENABLED)
	├── messaging-layer
	│   └── websocket-hub
	└── api-layer
	    └── http-server

Initialization order:

 1. Configuration: koanf with defaults, optional YAML file and environment
 2. Logging: zerolog, JSON or console
 3. Store: Badger document store (api and all roles)
 4. Services: members, CMS, events, documents, chat, search, analytics
 5. Authorization: Casbin enforcer
 6. Routing: chi with the API, the proxied portals, or both
 7. Supervisor tree

# Configuration

Priority: environment variables > config file (CONFIG_PATH) > defaults.

	SERVER_ROLE=all
	HTTP_PORT=8080
	DATABASE_PATH=/data/memberhub
	JWT_SECRET=<32+ chars>
	API_KEYS=<key1,key2>
	ADMIN_EMAIL=admin@example.com      # bootstrap administrator
	ADMIN_PASSWORD=<8+ chars>
	UPSTREAM_BASE_URL=http://127.0.0.1:8080
	UPSTREAM_API_KEY=<key1>
	UPLOAD_DIR=/data/uploads
	EVENTS_PUBLISH_SCHEDULE=@every 1m
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains within
SHUTDOWN_TIMEOUT, the hub closes its websocket clients, the scheduler waits
for running jobs and the store is closed last.
*/
package main
