package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"ettu-nearby/models"
	"ettu-nearby/services"
	"ettu-nearby/utils"
)

// MaxCount bounds the number of stations a single request may ask for.
const MaxCount = 10

// NearestQuerier is the query facade the handler serves.
type NearestQuerier interface {
	QueryNearest(ctx context.Context, lat, lon float64, count int) []models.StationReport
	Size() int
}

// NearestItem is one element of the /api/stations/nearest response.
type NearestItem struct {
	Station   models.Station        `json:"station"`
	DistanceM float64               `json:"distance_m"`
	Report    *models.ArrivalReport `json:"report,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// Handler serves nearest-stop queries over HTTP.
type Handler struct {
	svc          NearestQuerier
	defaultCount int
	logger       *utils.Logger
}

// NewHandler creates a Handler. defaultCount is used when a request has no count.
func NewHandler(svc NearestQuerier, defaultCount int, logger *utils.Logger) *Handler {
	return &Handler{svc: svc, defaultCount: defaultCount, logger: logger}
}

// NewApp builds the fiber application with all routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		h.logger.Debug("[api] %s %s -> %d", c.Method(), c.OriginalURL(), c.Response().StatusCode())
		return err
	})
	h.Register(app)
	return app
}

// Register mounts the handler's routes on app.
func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.Health)
	api.Get("/stations/nearest", h.Nearest)
}

// Health handles GET /api/health.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"stations": h.svc.Size(),
	})
}

// Nearest handles GET /api/stations/nearest?lat=&lon=&count=&format=.
// format=text returns the plain-text reply instead of JSON.
func (h *Handler) Nearest(c *fiber.Ctx) error {
	lat, err := parseFloatParam(c, "lat")
	if err != nil {
		return badRequest(c, err.Error())
	}
	lon, err := parseFloatParam(c, "lon")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := ValidateCoordinatePair(lat, lon); err != nil {
		return badRequest(c, err.Error())
	}

	count := h.defaultCount
	if raw := c.Query("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "count must be an integer")
		}
	}
	if count < 1 || count > MaxCount {
		return badRequest(c, "count must be between 1 and "+strconv.Itoa(MaxCount))
	}

	reports := h.svc.QueryNearest(c.UserContext(), lat, lon, count)

	if c.Query("format") == "text" {
		return c.SendString(services.FormatReports(reports))
	}

	items := make([]NearestItem, len(reports))
	for i, r := range reports {
		items[i] = NearestItem{Station: r.Station, DistanceM: r.DistanceMeters, Report: r.Report}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}
	return c.JSON(items)
}

func parseFloatParam(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be a number")
	}
	return v, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
