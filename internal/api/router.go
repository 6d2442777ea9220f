package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

type Dependencies struct {
	Ledger      handler.AttendanceLedger
	Students    handler.StudentStore
	Session     handler.SessionController
	Hub         *ws.Hub
	ExportName  string
	Readiness   map[string]handler.ReadinessCheck
	RateLimiter *middleware.RateLimiter
	// Audit receives operator changes to students and attendance; optional
	Audit audit.Logger
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Chamada API",
		BodyLimit:    12 * 1024 * 1024,
		// names from params and forms end up as ledger keys
		Immutable: true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// Setup registers middlewares and routes. ctx bounds capture sessions started
// over HTTP.
func (r *Router) Setup(ctx context.Context) {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.Readiness)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	// writes are rate limited per client
	limit := func(c *fiber.Ctx) error { return c.Next() }
	if r.deps.RateLimiter != nil {
		limit = r.deps.RateLimiter.Handler()
	}

	attendanceHandler := handler.NewAttendanceHandler(r.deps.Ledger, r.deps.ExportName, r.logger).WithAudit(r.deps.Audit)
	v1.Get("/attendance", attendanceHandler.List)
	v1.Get("/attendance/export", attendanceHandler.Export)
	v1.Put("/attendance/:name", limit, attendanceHandler.Update)
	v1.Delete("/attendance/:name", limit, attendanceHandler.Delete)

	studentHandler := handler.NewStudentHandler(r.deps.Students, r.logger).WithAudit(r.deps.Audit)
	v1.Get("/students", studentHandler.List)
	v1.Post("/students", limit, studentHandler.Add)
	v1.Delete("/students/:name", limit, studentHandler.Delete)

	if r.deps.Session != nil {
		sessionHandler := handler.NewSessionHandler(ctx, r.deps.Session, r.logger)
		v1.Get("/session", sessionHandler.Status)
		v1.Post("/session/start", limit, sessionHandler.Start)
		v1.Post("/session/stop", limit, sessionHandler.Stop)
	}

	if r.deps.Hub != nil {
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.deps.RateLimiter != nil {
		r.deps.RateLimiter.Stop()
	}
	return r.app.Shutdown()
}
