package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/wellness-van-map/internal/outreach"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *outreach.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		snap, err := service.LoadAll(c.UserContext())
		if err != nil {
			if errors.Is(err, outreach.ErrAllSourcesUnavailable) {
				return fiber.NewError(fiber.StatusServiceUnavailable, "no data source is reachable")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load data")
		}
		return c.JSON(snap)
	})

	v1.Get("/schedule", func(c *fiber.Ctx) error {
		q, err := parseScheduleQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.Schedule(c.UserContext(), q.filter())
		available, err := availability(err)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"range":     q.filter().Range,
			"service":   q.Service,
			"available": available,
			"records":   records,
		})
	})

	v1.Get("/tracking", func(c *fiber.Ctx) error {
		records, err := service.GetTracking(c.UserContext())
		available, err := availability(err)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"available": available, "records": records})
	})

	v1.Get("/statistics", func(c *fiber.Ctx) error {
		stats, err := service.GetStatistics(c.UserContext())
		available, err := availability(err)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"available": available, "statistics": stats})
	})

	v1.Get("/census", func(c *fiber.Ctx) error {
		tracts, err := service.GetCensus(c.UserContext())
		available, err := availability(err)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"available": available, "tracts": tracts})
	})

	v1.Get("/markers", func(c *fiber.Ctx) error {
		q, err := parseScheduleQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		groups, bounds, ok, err := service.Markers(c.UserContext(), q.filter())
		available, err := availability(err)
		if err != nil {
			return err
		}

		resp := fiber.Map{"available": available, "markers": groups, "bounds": nil}
		if ok {
			resp["bounds"] = boundsJSON(bounds)
		}
		return c.JSON(resp)
	})

	v1.Get("/markers/locate", func(c *fiber.Ctx) error {
		var q locateQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		groups, _, _, err := service.Markers(c.UserContext(), outreach.ScheduleFilter{Range: outreach.RangeAll})
		if _, err := availability(err); err != nil {
			return err
		}

		group, found := outreach.FindMarker(groups, q.Lat, q.Lng)
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "no marker at requested position")
		}
		return c.JSON(group)
	})

	v1.Get("/tracts", func(c *fiber.Ctx) error {
		fc, err := service.Choropleth(c.UserContext())
		if err != nil {
			if errors.Is(err, outreach.ErrNoTractGeometry) {
				return fiber.NewError(fiber.StatusNotFound, "census tract geometry is not configured")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build tract overlay")
		}
		return c.JSON(fc)
	})

	v1.Get("/map", func(c *fiber.Ctx) error {
		q, err := parseScheduleQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		view := newMapView()
		if err := service.Render(c.UserContext(), view, q.filter()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render map")
		}
		return c.JSON(view)
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		resp := fiber.Map{"lastUpdate": nil, "datasets": service.Status()}
		if last, ok := service.LastUpdate(); ok {
			resp["lastUpdate"] = last.UTC().Format(time.RFC3339)
		}
		return c.JSON(resp)
	})

	v1.Post("/cache/clear", func(c *fiber.Ctx) error {
		service.ClearCache()
		return c.JSON(fiber.Map{"cleared": true})
	})
}

// availability turns a per-dataset failure into an empty-but-OK response.
func availability(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, outreach.ErrDatasetUnavailable) {
		return false, nil
	}
	return false, fiber.NewError(fiber.StatusInternalServerError, "failed to load data")
}

// scheduleQuery holds query parameters shared by the schedule views.
type scheduleQuery struct {
	Range   string
	Service string `validate:"max=100"`
}

func (q scheduleQuery) filter() outreach.ScheduleFilter {
	return outreach.ScheduleFilter{
		Range:   outreach.ParseDateRange(q.Range),
		Service: q.Service,
	}
}

func parseScheduleQuery(c *fiber.Ctx) (scheduleQuery, error) {
	q := scheduleQuery{
		Range:   c.Query("range", string(outreach.RangeAll)),
		Service: c.Query("service"),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// locateQuery holds the position of a marker to open.
type locateQuery struct {
	Lat float64 `validate:"latitude"`
	Lng float64 `validate:"longitude"`
}

func (l *locateQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")
	if latStr == "" || lngStr == "" {
		return errors.New("lat and lng query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return errors.New("lng must be a number")
	}

	l.Lat = lat
	l.Lng = lng
	return validate.Struct(l)
}
