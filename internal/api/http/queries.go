package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/radar-archive/internal/radar"
	"github.com/i474232898/radar-archive/internal/registry"
)

// filesQuery holds query parameters for the file search endpoint.
type filesQuery struct {
	Network      string `query:"network" validate:"required"`
	Radar        string `query:"radar" validate:"required"`
	Start        string `query:"start" validate:"required"`
	End          string `query:"end" validate:"required"`
	Protocol     string `query:"protocol" validate:"omitempty,oneof=s3 gcs gs local file"`
	IgnoreErrors bool   `query:"ignore_errors"`
	Daily        bool   `query:"daily"`
}

func (q filesQuery) toRequest(reg *registry.Registry) (radar.SearchRequest, error) {
	network, err := reg.CheckNetwork(q.Network)
	if err != nil {
		return radar.SearchRequest{}, err
	}
	radarName, err := reg.CheckRadar(network, q.Radar)
	if err != nil {
		return radar.SearchRequest{}, err
	}
	start, end, err := optionalWindow(q.Start, q.End)
	if err != nil {
		return radar.SearchRequest{}, err
	}
	protocol, err := radar.CheckProtocol(q.Protocol)
	if err != nil {
		return radar.SearchRequest{}, err
	}
	if protocol == "" {
		protocol = radar.ProtocolS3
	}
	return radar.SearchRequest{
		Network:      network,
		Radar:        radarName,
		Start:        start,
		End:          end,
		Protocol:     protocol,
		IgnoreErrors: q.IgnoreErrors,
	}, nil
}

type infoQuery struct {
	Network      string `query:"network" validate:"required"`
	Filename     string `query:"filename" validate:"required"`
	IgnoreErrors bool   `query:"ignore_errors"`
}

type groupsRequest struct {
	Network   string   `json:"network" validate:"required"`
	Filepaths []string `json:"filepaths" validate:"required,min=1,dive,required"`
	Groups    []string `json:"groups"`
}

type nearestQuery struct {
	Network string `query:"network"`
	Address string `query:"address"`
	Lon     string `query:"lon" validate:"omitempty,longitude"`
	Lat     string `query:"lat" validate:"omitempty,latitude"`
	Limit   int    `query:"limit" validate:"gte=0,lte=50"`
}

// radarQuery identifies one radar in the sync ledger.
type radarQuery struct {
	Network string `query:"network" validate:"required"`
	Radar   string `query:"radar" validate:"required"`
}

type historyQuery struct {
	Network string `query:"network" validate:"required"`
	Radar   string `query:"radar" validate:"required"`
	From    string `query:"from"`
	To      string `query:"to"`
}

func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// optionalWindow parses a start/end pair. Both or neither must be given.
func optionalWindow(startText, endText string) (*time.Time, *time.Time, error) {
	if startText == "" && endText == "" {
		return nil, nil, nil
	}
	if startText == "" || endText == "" {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "start and end must be given together")
	}
	start, err := radar.ParseTime(startText)
	if err != nil {
		return nil, nil, err
	}
	end, err := radar.ParseTime(endText)
	if err != nil {
		return nil, nil, err
	}
	start, end, err = radar.CheckStartEndTime(start, end)
	if err != nil {
		return nil, nil, err
	}
	return &start, &end, nil
}
