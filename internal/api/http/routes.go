package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/radar-archive/internal/geo"
	"github.com/i474232898/radar-archive/internal/metrics"
	"github.com/i474232898/radar-archive/internal/radar"
	"github.com/i474232898/radar-archive/internal/registry"
	"github.com/i474232898/radar-archive/internal/store"
)

var validate = validator.New()

// Deps are the services behind the HTTP surface. Geocoder and Metrics are optional.
type Deps struct {
	Registry *registry.Registry
	Search   *radar.Service
	Ledger   *store.MemoryStore
	Geocoder geo.Geocoder
	Metrics  *metrics.Collector
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/networks", func(c *fiber.Ctx) error {
		names := d.Registry.AvailableNetworks()
		out := make([]registry.NetworkInfo, 0, len(names))
		for _, name := range names {
			info, err := d.Registry.NetworkInfo(name)
			if err != nil {
				return err
			}
			out = append(out, info)
		}
		return c.JSON(out)
	})

	v1.Get("/networks/:network/radars", func(c *fiber.Ctx) error {
		network, err := d.Registry.CheckNetwork(c.Params("network"))
		if err != nil {
			return err
		}
		start, end, err := optionalWindow(c.Query("start"), c.Query("end"))
		if err != nil {
			return err
		}
		radars, err := d.Registry.AvailableRadars(network, start, end)
		if err != nil {
			return err
		}
		if radars == nil {
			radars = []string{}
		}
		return c.JSON(fiber.Map{
			"network": network,
			"radars":  radars,
		})
	})

	v1.Get("/networks/:network/radars/:radar", func(c *fiber.Ctx) error {
		network, err := d.Registry.CheckNetwork(c.Params("network"))
		if err != nil {
			return err
		}
		rd, err := d.Registry.Radar(network, c.Params("radar"))
		if err != nil {
			return err
		}
		start, end := rd.Coverage()
		return c.JSON(fiber.Map{
			"radar":         rd,
			"time_coverage": []time.Time{start, end},
			"location":      []float64{rd.Longitude, rd.Latitude},
		})
	})

	v1.Get("/files", func(c *fiber.Ctx) error {
		var q filesQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		req, err := q.toRequest(d.Registry)
		if err != nil {
			return err
		}
		find := d.Search.FindFiles
		if q.Daily {
			find = d.Search.FindFilesDaily
		}
		files, err := find(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"network":  req.Network,
			"radar":    req.Radar,
			"start":    req.Start,
			"end":      req.End,
			"protocol": req.Protocol,
			"files":    files,
		})
	})

	v1.Get("/info", func(c *fiber.Ctx) error {
		var q infoQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		network, err := d.Registry.CheckNetwork(q.Network)
		if err != nil {
			return err
		}
		info, err := d.Search.InfoFromFilepath(network, q.Filename, q.IgnoreErrors)
		if err != nil {
			return err
		}
		return c.JSON(info)
	})

	v1.Post("/groups", func(c *fiber.Ctx) error {
		var req groupsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		network, err := d.Registry.CheckNetwork(req.Network)
		if err != nil {
			return err
		}
		groups, err := d.Search.GroupFilepaths(network, req.Filepaths, req.Groups...)
		if err != nil {
			return err
		}
		return c.JSON(groups)
	})

	v1.Get("/radars/nearest", func(c *fiber.Ctx) error {
		var q nearestQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		if q.Address == "" && (q.Lon == "" || q.Lat == "") {
			return fiber.NewError(fiber.StatusBadRequest, "either address or lon and lat are required")
		}
		if q.Limit == 0 {
			q.Limit = 1
		}
		network := ""
		if q.Network != "" {
			n, err := d.Registry.CheckNetwork(q.Network)
			if err != nil {
				return err
			}
			network = n
		}

		var (
			radars []registry.NearestRadar
			err    error
		)
		if q.Address != "" {
			if d.Geocoder == nil {
				return fiber.NewError(fiber.StatusNotImplemented, "address lookup is not configured")
			}
			radars, err = geo.NearestToAddress(c.UserContext(), d.Geocoder, d.Registry, network, q.Address, q.Limit)
		} else {
			lon, _ := strconv.ParseFloat(q.Lon, 64)
			lat, _ := strconv.ParseFloat(q.Lat, 64)
			radars, err = d.Registry.Nearest(network, lon, lat, q.Limit)
		}
		if err != nil {
			return err
		}
		return c.JSON(radars)
	})

	v1.Get("/sync/latest", func(c *fiber.Ctx) error {
		var q radarQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		rec, err := d.Ledger.GetLatest(q.Network, q.Radar)
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})

	v1.Get("/sync/history", func(c *fiber.Ctx) error {
		var q historyQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		to := time.Now().UTC()
		from := to.Add(-24 * time.Hour)
		var err error
		if q.From != "" {
			if from, err = radar.ParseTime(q.From); err != nil {
				return err
			}
		}
		if q.To != "" {
			if to, err = radar.ParseTime(q.To); err != nil {
				return err
			}
		}
		if to.Before(from) {
			return fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
		}
		records, err := d.Ledger.GetRange(q.Network, q.Radar, from, to)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"network": q.Network,
			"radar":   q.Radar,
			"from":    from,
			"to":      to,
			"records": records,
		})
	})
}

// ErrorHandler renders every error as JSON and maps domain errors to
// status codes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// StatusFor returns the HTTP status of err.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, radar.ErrUnknownNetwork), errors.Is(err, radar.ErrUnknownRadar),
		errors.Is(err, radar.ErrKeyNotFound), errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, radar.ErrNotImplemented):
		return fiber.StatusNotImplemented
	case errors.Is(err, radar.ErrInvalidArgument), errors.Is(err, radar.ErrInvalidValue):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
