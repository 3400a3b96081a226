// Package constant holds the business error codes, headers and telemetry names
// shared by the gateway packages.
package constant
