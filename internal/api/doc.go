// Package api implements the HTTP interface of the solar power monitor.
//
// This package provides:
//   - A plain-text service description on "/" and long-form markdown on "/desc"
//   - The generated Thing Description on "/api"
//   - One resource per device property, reachable by code and by alias
//   - One-shot long-poll observation of a property
//   - Middleware stack (request ID, logging, recovery, path normalisation)
//
// Paths are matched case-insensitively and a single trailing slash is
// ignored, so "/API/Panel/" reaches the same handler as "/api/panel". The
// query string never takes part in routing.
//
// Property values travel as JSON. Errors are short plain-text messages.
//
// # Request Bodies
//
// Write requests carry exactly one JSON value of at most api.max_body_bytes
// bytes. Larger bodies are refused with 413 and the connection is closed;
// anything that is not a single JSON value is refused with 400.
//
// # Security
//
// There is no authentication. Run the service behind a firewall or an
// authenticating reverse proxy.
package api
