// Package server runs the gateway HTTP server and shuts it down gracefully on
// SIGINT or SIGTERM, releasing telemetry and registered resources in order.
package server
