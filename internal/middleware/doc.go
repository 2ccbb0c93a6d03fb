// Package middleware provides HTTP middleware for the corpus manager API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labeled by route template
//   - gzip compression of JSON and text responses
package middleware
