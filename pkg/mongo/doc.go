// Package mongo connects to MongoDB with the v2 driver and exposes a
// readiness check for the client.
package mongo
