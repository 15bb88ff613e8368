package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-quota/internal/identity"
	"github.com/i474232898/weather-quota/internal/weather"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	// Always answers 200 with a well-formed result; an empty series is the
	// only failure signal the client needs.
	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		place := parsePlace(c)
		result := service.Handle(c.UserContext(), place, identity.FromRequest(c))
		return c.JSON(result)
	})

	v1.Get("/usage", func(c *fiber.Ctx) error {
		return c.JSON(service.Usage())
	})
}

// parsePlace returns the place query parameter, or nil when it is absent.
func parsePlace(c *fiber.Ctx) *string {
	if !c.Context().QueryArgs().Has("place") {
		return nil
	}
	place := c.Query("place")
	return &place
}
