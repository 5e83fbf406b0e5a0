package mapui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/farmshopfinder/farmmap/internal/geo/location"
	"github.com/farmshopfinder/farmmap/internal/humastar"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// LocationHandler ingests geolocation samples from the browser and streams
// back the user-location marker, its accuracy circle, and the nearest farm.
type LocationHandler struct {
	humastar.Handler
	state *MapState
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(state *MapState, renderer *humastar.Renderer) *LocationHandler {
	return &LocationHandler{
		Handler: humastar.Handler{Renderer: renderer},
		state:   state,
	}
}

func (h *LocationHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/map/location", h.Update, huma.OperationTags("map"))
}

// Update receives one geolocation sample as Datastar signals. Each sample
// fully replaces the previous one. Permission denial never reaches this
// endpoint; the client simply stops posting.
func (h *LocationHandler) Update(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}

	sample := service.UserLocationSample{
		Lat:       signals.Float("geolat"),
		Lng:       signals.Float("geolng"),
		Accuracy:  signals.Float("geoaccuracy"),
		Timestamp: int64(signals.Float("geotimestamp")),
	}

	return h.Stream(func(sse humastar.SSE) {
		h.state.Tracker.Apply(sample)

		out := map[string]any{
			"userlat": sample.Lat,
			"userlng": sample.Lng,
		}

		// accuracy circle as a GeoJSON ring so both engines draw the same shape
		circle := geojson.NewFeature(location.AccuracyCircle(sample, 0))
		if raw, err := circle.MarshalJSON(); err == nil {
			out["accuracycircle"] = string(raw)
		}

		if nearest, ok := h.state.Tracker.NearestFarm(); ok {
			out["nearestfarm"] = nearest.Farm.ID
			out["nearestname"] = nearest.Farm.Name
			out["nearestmeters"] = nearest.Meters
		}

		sse.Signals(out)
	}), nil
}
