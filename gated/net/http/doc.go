// Package http provides the fiber helpers shared by the gateway handlers:
// response writers, the error contract, request validation and access logging.
package http
