package http

import (
	"errors"
	"strings"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	cn "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const healthPath = "/health"

// WithHTTPLogging tags every request with an X-Request-Id, generating one when
// the client sent none, stores a logger carrying it in the user context and
// logs one access line when the handler returns. Health checks are not logged.
func WithHTTPLogging(logger log.Logger) fiber.Handler {
	if logger == nil {
		logger = log.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Path() == healthPath {
			return c.Next()
		}

		started := time.Now()
		requestID := requestID(c)

		reqLogger := logger.With(log.String(cn.HeaderID, requestID))
		c.SetUserContext(gated.ContextWithLogger(c.UserContext(), reqLogger))

		err := c.Next()

		reqLogger.Log(c.UserContext(), log.LevelInfo, c.Method()+" "+c.OriginalURL(),
			log.Int("status", responseStatus(c, err)),
			log.Int("bytes", len(c.Response().Body())),
			log.Duration("duration", time.Since(started)),
			log.String("remote_addr", c.IP()),
			log.String("user_agent", c.Get(cn.HeaderUserAgent)))

		return err
	}
}

func requestID(c *fiber.Ctx) string {
	id := strings.TrimSpace(c.Get(cn.HeaderID))
	if id == "" {
		id = uuid.NewString()
		c.Request().Header.Set(cn.HeaderID, id)
	}

	c.Set(cn.HeaderID, id)
	ctx := gated.ContextWithHeaderID(c.UserContext(), id)
	c.SetUserContext(gated.ContextWithSpanAttributes(ctx, attribute.String(cn.AttrPrefixAppRequest+"request_id", id)))

	return id
}

// responseStatus predicts the status the error handler will write, since the
// middleware returns before it runs.
func responseStatus(c *fiber.Ctx, err error) int {
	status := c.Response().StatusCode()
	if err == nil {
		return status
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	if status < fiber.StatusBadRequest {
		return fiber.StatusInternalServerError
	}

	return status
}

// WithTelemetry opens a server span per request, continuing the W3C trace
// context of the caller, and puts tracer in the user context.
func WithTelemetry(tracer trace.Tracer, propagator propagation.TextMapPropagator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == healthPath {
			return c.Next()
		}

		// MapCarrier lookups are by lowercase key.
		carrier := propagation.MapCarrier{}
		c.Request().Header.VisitAll(func(k, v []byte) {
			carrier[strings.ToLower(string(k))] = string(v)
		})

		ctx := gated.ContextWithTracer(propagator.Extract(c.UserContext(), carrier), tracer)

		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
			))
		defer span.End()

		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(attribute.Int("http.response.status_code", responseStatus(c, err)))

		return err
	}
}
