// Package middleware provides HTTP middleware for the varatio service.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with log-injection
//     sanitising and optional skipping of health checks and static files
//   - Prometheus request metrics labelled by mux route template
package middleware
