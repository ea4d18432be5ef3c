package web

import (
	"strconv"

	"github.com/fixlify/automation-engine/pkg/dispatcher"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	persistence persistence.Persistence
	dispatcher  *dispatcher.Dispatcher
	guard       *guard.ExecutionGuard
	validate    *validator.Validate
}

func NewAPI(
	store persistence.Persistence,
	disp *dispatcher.Dispatcher,
	g *guard.ExecutionGuard,
) *API {
	return &API{
		persistence: store,
		dispatcher:  disp,
		guard:       g,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.persistence, a.dispatcher, a.guard, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Fixlify Automation Engine")
	})

	v1 := app.Group("/v1")
	v1.Post("/events/:name", handlers.IngestEvent)

	w := v1.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)

	v1.Get("/executions", handlers.GetExecutionLogs)

	app.Post("/admin/guard/reset", handlers.ResetGuard)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
