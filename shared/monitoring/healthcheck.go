package monitoring

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"storm-sync/internal/models"
	"storm-sync/shared/logging"
)

// ConditionsProvider exposes the latest dashboard state
type ConditionsProvider interface {
	Conditions() models.Conditions
}

type HealthServer struct {
	monitor    *Monitor
	conditions ConditionsProvider
	port       string
	app        *fiber.App
}

// NewHealthServer builds the status API. conditions may be nil for agents
// that have no dashboard state.
func NewHealthServer(monitor *Monitor, conditions ConditionsProvider, port string) *HealthServer {
	if port == "" {
		port = "8080"
	}
	h := &HealthServer{
		monitor:    monitor,
		conditions: conditions,
		port:       port,
		app: fiber.New(fiber.Config{
			AppName:               "storm-sync",
			DisableStartupMessage: true,
		}),
	}
	h.routes()
	return h
}

func (h *HealthServer) routes() {
	h.app.Get("/health", h.healthHandler)
	h.app.Get("/status", h.statusHandler)
	if h.conditions != nil {
		h.app.Get("/api/v1/conditions", h.conditionsHandler)
	}
}

func (h *HealthServer) Start() {
	log := logging.Named("health")
	log.Infof("Health check server starting on port %s", h.port)
	go func() {
		if err := h.app.Listen(":" + h.port); err != nil {
			log.Errorf("Health server error: %v", err)
		}
	}()
}

func (h *HealthServer) Shutdown() error {
	return h.app.Shutdown()
}

func (h *HealthServer) healthHandler(c *fiber.Ctx) error {
	if h.monitor.IsHealthy() {
		return c.Status(fiber.StatusOK).SendString(fmt.Sprintf("OK - %s", h.monitor.GetStatusSummary()))
	}
	return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Service unhealthy - %s", h.monitor.GetStatusSummary()))
}

func (h *HealthServer) statusHandler(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(h.monitor.GetStatusSummary())
}

func (h *HealthServer) conditionsHandler(c *fiber.Ctx) error {
	return c.JSON(h.conditions.Conditions())
}
