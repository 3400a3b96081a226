package gateway

import (
	"github.com/LerianStudio/lib-gated/gated/log"
	libHTTP "github.com/LerianStudio/lib-gated/gated/net/http"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// AppConfig holds the transport-level dependencies of NewApp.
type AppConfig struct {
	Logger     log.Logger
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
	BodyLimit  int
}

// NewApp builds the fiber application with middlewares and every route.
func NewApp(cfg AppConfig, h *Handler) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	fiberCfg := fiber.Config{
		AppName:               "gatewayd",
		DisableStartupMessage: true,
		ErrorHandler:          libHTTP.FiberErrorHandler,
	}

	if cfg.BodyLimit > 0 {
		fiberCfg.BodyLimit = cfg.BodyLimit
	}

	app := fiber.New(fiberCfg)

	app.Use(recoverMiddleware(cfg.Logger))

	if cfg.Tracer != nil {
		propagator := cfg.Propagator
		if propagator == nil {
			propagator = propagation.TraceContext{}
		}

		app.Use(libHTTP.WithTelemetry(cfg.Tracer, propagator))
	}

	app.Use(libHTTP.WithHTTPLogging(cfg.Logger))

	h.Register(app)

	return app
}

// Register mounts the gateway routes on router.
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", libHTTP.Health)
	router.Get("/version", libHTTP.Version)

	v1 := router.Group("/v1")

	v1.Get("/authorizations", h.ListAuthorized)
	v1.Get("/authorizations/:identity", h.GetAuthorization)
	v1.Put("/authorizations/:identity", h.Grant)
	v1.Delete("/authorizations/:identity", h.Revoke)

	v1.Get("/balances/:identity", h.GetBalance)
	v1.Get("/supply", h.GetSupply)

	v1.Post("/issues", h.idempotent, h.Issue)
	v1.Post("/redemptions", h.idempotent, h.Redeem)
	v1.Post("/transfers", h.idempotent, h.Transfer)
	v1.Post("/wraps", h.idempotent, h.Wrap)
	v1.Post("/unwraps", h.idempotent, h.Unwrap)

	v1.Post("/bundles/analyze", h.AnalyzeBundle)
	v1.Post("/bundles", h.idempotent, h.ExecuteBundle)
}

// recoverMiddleware turns handler panics into 500 responses and reports them
// through the runtime panic pipeline.
func recoverMiddleware(logger log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := c.UserContext()
				runtime.HandlePanicValue(ctx, logger, r, "gateway", c.Method()+" "+c.Route().Path)

				err = fiber.ErrInternalServerError
			}
		}()

		return c.Next()
	}
}
