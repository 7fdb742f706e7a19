// Package observability builds the structured logger shared by the gateway.
//
// Logs are JSON in production and human readable in development. Request
// scoped fields such as the request id are attached by the HTTP middleware.
package observability
