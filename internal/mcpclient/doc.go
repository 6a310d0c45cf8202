// Package mcpclient provides transport clients for MCP tool servers.
//
// Two transports are supported: stdio, which launches the tool server as
// a local subprocess, and streamable-http, which connects to a remote
// endpoint. Both implement the Client interface, so the tool resolver is
// independent of how a server is reached. HTTP headers (including bearer
// tokens injected at resolution time) are attached to every
// streamable-http request.
package mcpclient
