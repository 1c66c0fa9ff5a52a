// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

/*
Package supervisor runs the long-lived parts of a memberhub server under a
suture supervisor tree.

Every service implements suture.Service: Serve blocks until its context is
cancelled and returns an error when it fails, at which point suture restarts
it with backoff. Services are grouped into layers so failures stay local:

	tree, _ := supervisor.NewSupervisorTree(logger, supervisor.TreeConfig{})
	tree.AddJobService(scheduler)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, role, 10*time.Second))
	err := tree.Serve(ctx)

Adapters for the HTTP server and the websocket hub live in the services
subpackage. The scheduler and the analytics consumer implement
suture.Service directly.
*/
package supervisor
