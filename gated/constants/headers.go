package constant

// HTTP headers read or written by the gateway.
const (
	HeaderUserAgent   = "User-Agent"
	HeaderID          = "X-Request-Id"
	HeaderContentType = "Content-Type"
	// HeaderCaller names the agent relaying a transfer on behalf of the source.
	HeaderCaller = "X-Caller-Id"

	IdempotencyKey = "X-Idempotency"
	// IdempotencyTTL is in seconds.
	IdempotencyTTL      = "X-TTL"
	IdempotencyReplayed = "X-Idempotency-Replayed"
)
