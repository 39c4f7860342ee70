// Package a2a defines the Agent-to-Agent protocol model: the part/message/
// artifact content containers, the agent card discovery document, the
// JSON-RPC invocation envelope, the streaming event set, and the typed
// error taxonomy shared by client and server.
package a2a
