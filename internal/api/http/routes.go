package httpapi

import (
	"bufio"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/weather-dashboard/internal/chart"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/mapview"
	"github.com/i474232898/weather-dashboard/internal/sse"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

const keepaliveInterval = 30 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, session *dashboard.Session, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		snap, err := session.Snapshot()
		if err != nil {
			return toFiberError(err, "no weather data yet")
		}
		return c.JSON(fiber.Map{
			"fetchedAt": snap.FetchedAt,
			"stations":  snap.Stations,
		})
	})

	v1.Get("/stations/:id", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "station id must be an integer")
		}
		station, err := session.Station(id)
		if err != nil {
			return toFiberError(err, "no such station in the latest snapshot")
		}
		return c.JSON(station)
	})

	v1.Get("/stations/:id/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := session.History(req.StationID, req.From, req.To)
		if err != nil {
			return toFiberError(err, "no station history for requested range")
		}
		return c.JSON(fiber.Map{
			"stationId": req.StationID,
			"from":      req.From,
			"to":        req.To,
			"readings":  readings,
		})
	})

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		snap, err := session.Snapshot()
		if err != nil {
			return toFiberError(err, "no forecast yet")
		}
		return c.JSON(fiber.Map{
			"labels":   weather.DayLabels(snap.Forecast),
			"forecast": snap.Forecast,
		})
	})

	v1.Get("/forecast/chart", func(c *fiber.Ctx) error {
		return c.JSON(session.Chart())
	})

	v1.Put("/forecast/chart/legend", func(c *fiber.Ctx) error {
		var req legendRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		if err := session.SetDatasetHidden(req.Label, *req.Hidden); err != nil {
			if errors.Is(err, chart.ErrUnknownDataset) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return toFiberError(err, "")
		}
		return c.JSON(session.Chart())
	})

	v1.Get("/map", func(c *fiber.Ctx) error {
		return c.JSON(session.Map())
	})

	v1.Post("/map/reset", func(c *fiber.Ctx) error {
		if err := session.ResetView(); err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(session.Map())
	})

	v1.Post("/map/popup/:id", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "station id must be an integer")
		}
		opened, err := session.OpenPopup(id)
		if err != nil {
			return toFiberError(err, "")
		}
		if !opened {
			return fiber.NewError(fiber.StatusNotFound, "no marker for station")
		}
		return c.JSON(session.Map())
	})

	v1.Delete("/map/popup", func(c *fiber.Ctx) error {
		if err := session.ClosePopup(); err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(session.Map())
	})

	v1.Get("/heatmap/legend", func(c *fiber.Ctx) error {
		legend, err := session.Legend()
		if err != nil {
			return toFiberError(err, "no weather data yet")
		}
		return c.JSON(fiber.Map{
			"visualizationType": legend.Type,
			"label":             legend.Label,
			"range":             legend.Range,
			"gradient":          mapview.DefaultOptions().Heat.Gradient,
			"summary":           legend.Summary,
		})
	})

	v1.Get("/controls", func(c *fiber.Ctx) error {
		return c.JSON(session.Controls())
	})

	v1.Put("/controls/selection", func(c *fiber.Ctx) error {
		var req selectionRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		found, err := session.SelectStation(*req.StationID)
		if err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(fiber.Map{
			"found":    found,
			"controls": session.Controls(),
		})
	})

	v1.Delete("/controls/selection", func(c *fiber.Ctx) error {
		if err := session.ClearSelection(); err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(session.Controls())
	})

	v1.Put("/controls/visualization", func(c *fiber.Ctx) error {
		var req visualizationRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		t, err := weather.ParseVisualizationType(req.Type)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := session.SetVisualizationType(t); err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(session.Controls())
	})

	v1.Put("/controls/heatmap", func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		if err := session.SetHeatmapEnabled(*req.Enabled); err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(session.Controls())
	})

	v1.Post("/controls/reset", func(c *fiber.Ctx) error {
		if err := session.Reset(); err != nil {
			return toFiberError(err, "")
		}
		return c.JSON(session.Controls())
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		started, done := session.Refresh()
		if !started {
			return fiber.NewError(fiber.StatusConflict, "refresh already in progress")
		}
		go func() {
			if err := <-done; err != nil {
				logger.Warn("manual refresh failed", "err", err)
			}
		}()
		return c.Status(fiber.StatusAccepted).JSON(session.Status())
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(session.Status())
	})

	v1.Put("/polling", func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}
		session.SetPollingEnabled(*req.Enabled)
		return c.JSON(session.Status())
	})

	v1.Post("/retry", func(c *fiber.Ctx) error {
		done := session.Retry()
		go func() {
			if err := <-done; err != nil {
				logger.Warn("retry failed", "err", err)
			}
		}()
		return c.Status(fiber.StatusAccepted).JSON(session.Status())
	})

	v1.Get("/events", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		events := session.Events()
		clientID, messages := events.AddClient()
		initial := []sse.Message{
			{Type: sse.EventConnected, Data: fiber.Map{"clientId": clientID}},
			{Type: sse.EventStatus, Data: session.Status()},
			{Type: sse.EventControls, Data: session.Controls()},
			{Type: sse.EventMap, Data: session.Map()},
			{Type: sse.EventChart, Data: session.Chart()},
		}

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer events.RemoveClient(clientID)

			for _, msg := range initial {
				if err := sse.WriteMessage(w, msg); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}

			keepalive := time.NewTicker(keepaliveInterval)
			defer keepalive.Stop()

			for {
				select {
				case msg, ok := <-messages:
					if !ok {
						return
					}
					if err := sse.WriteMessage(w, msg); err != nil {
						logger.Debug("sse write failed", "client", clientID, "err", err)
						return
					}
				case <-keepalive.C:
					if err := sse.WriteKeepalive(w); err != nil {
						return
					}
				}
				// A flush error means the client went away.
				if err := w.Flush(); err != nil {
					return
				}
			}
		}))
		return nil
	})
}

// toFiberError maps domain errors to HTTP errors. notFound overrides the
// message for store misses.
func toFiberError(err error, notFound string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		if notFound == "" {
			notFound = err.Error()
		}
		return fiber.NewError(fiber.StatusNotFound, notFound)
	case errors.Is(err, dashboard.ErrClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, mapview.ErrMapNotCreated):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

type selectionRequest struct {
	StationID *int `json:"stationId" validate:"required"`
}

type visualizationRequest struct {
	Type string `json:"type" validate:"required,oneof=temperature wind pressure"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type legendRequest struct {
	Label  string `json:"label" validate:"required"`
	Hidden *bool  `json:"hidden" validate:"required"`
}

// historyQuery holds parameters for the station history endpoint.
type historyQuery struct {
	StationID int       `validate:"required"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errors.New("station id must be an integer")
	}
	h.StationID = id

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
