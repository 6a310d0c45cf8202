// Package server exposes the agenthub HTTP API.
//
// The API has three surfaces: the OAuth browser flow (connect and
// callback endpoints), the settings surface (integration status and
// revocation), and the agent surface (tool resolution and invocation).
// User identity arrives in the X-AgentHub-User header, injected by the
// hosted platform in front of this service.
package server
