package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/idempotency"
	"github.com/LerianStudio/lib-gated/gated/log"
	libHTTP "github.com/LerianStudio/lib-gated/gated/net/http"
	"github.com/gofiber/fiber/v2"
)

var errIdempotencyUnavailable = libHTTP.ErrorResponse{
	Status:  http.StatusServiceUnavailable,
	Title:   "idempotency_unavailable",
	Message: "The idempotency store is unavailable. Please retry later.",
}

// idempotent replays the stored response for a repeated X-Idempotency key.
// Keys are scoped by method and path. Responses with a 5xx status are not
// stored so the client may retry them.
func (h *Handler) idempotent(c *fiber.Ctx) error {
	header := c.Get(constant.IdempotencyKey)
	if h.idempotency == nil || header == "" {
		return c.Next()
	}

	ctx := c.UserContext()
	logger := h.requestLogger(c)
	key := c.Method() + ":" + c.Path() + ":" + header
	ttl := h.requestTTL(c)

	replay, err := h.idempotency.Reserve(ctx, key, ttl)

	switch {
	case errors.Is(err, idempotency.ErrInFlight):
		return libHTTP.RenderError(c, gated.ValidateBusinessError(err, constant.EntityLedger))
	case errors.Is(err, idempotency.ErrEmptyKey):
		return h.invalid(c, err)
	case err != nil:
		logger.Log(ctx, log.LevelError, "idempotency reserve failed", log.String("key", header), log.Err(err))

		return libHTTP.RenderError(c, errIdempotencyUnavailable)
	case replay != nil:
		c.Set(constant.IdempotencyReplayed, "true")

		if replay.ContentType != "" {
			c.Set(fiber.HeaderContentType, replay.ContentType)
		}

		return c.Status(replay.StatusCode).Send(replay.Body)
	}

	c.Set(constant.IdempotencyReplayed, "false")

	// Completion must survive a client that disconnects mid-request.
	storeCtx := context.WithoutCancel(ctx)

	if err := c.Next(); err != nil {
		h.release(storeCtx, logger, key)

		return err
	}

	status := c.Response().StatusCode()
	if status >= http.StatusInternalServerError {
		h.release(storeCtx, logger, key)

		return nil
	}

	record := idempotency.Record{
		StatusCode:  status,
		ContentType: string(c.Response().Header.ContentType()),
		Body:        append([]byte(nil), c.Response().Body()...),
	}

	if err := h.idempotency.Complete(storeCtx, key, record, ttl); err != nil {
		logger.Log(ctx, log.LevelError, "idempotency complete failed", log.String("key", header), log.Err(err))
	}

	return nil
}

func (h *Handler) release(ctx context.Context, logger log.Logger, key string) {
	if err := h.idempotency.Release(ctx, key); err != nil {
		logger.Log(ctx, log.LevelWarn, "idempotency release failed", log.Err(err))
	}
}

// requestTTL honours X-TTL, in seconds, and falls back to the handler TTL.
func (h *Handler) requestTTL(c *fiber.Ctx) time.Duration {
	if raw := c.Get(constant.IdempotencyTTL); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return h.idempotencyTTL
}
