// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package websocket delivers real-time chat and event notifications.

The hub tracks connected clients by member ID. Chat messages are sent to
every connection of the recipient member; event announcements are broadcast
to all connected members.

	┌──────────┐
	│   Hub    │ ← SendTo(member) / BroadcastJSON
	└────┬─────┘
	     │
	┌────┴─────┬─────────┐
	│ alice#1  │ alice#2 │ bob#1
	└──────────┴─────────┘

Each client has two goroutines:
  - readPump: reads from the connection, answers application pings
  - writePump: writes queued messages and keepalive pings

Message Types:

  - chat_message: a new chat message for the recipient
  - chat_read: the peer read the conversation
  - event_published: an event went live
  - ping / pong: application-level keepalive

The hub runs under the supervisor via RunWithContext; on shutdown every
client channel is closed so the write pumps send a close frame.
*/
package websocket
