// Package server exposes the local control API.
package server

import "time"

const (
	// Sliding-window rate limit for inbound websocket commands.
	RateLimitMessages = 10
	RateLimitWindow   = time.Second
)
