package mapui

import (
	"context"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/farmshopfinder/farmmap/internal/humastar"
)

// MarkerHandler streams marker reconciliation commands to the map UI.
type MarkerHandler struct {
	humastar.Handler
	state *MapState
}

// NewMarkerHandler creates a new marker handler.
func NewMarkerHandler(state *MapState, renderer *humastar.Renderer) *MarkerHandler {
	return &MarkerHandler{
		Handler: humastar.Handler{Renderer: renderer},
		state:   state,
	}
}

func (h *MarkerHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/map/viewport", h.Viewport, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/markers", h.Markers, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/filter", h.Filter, huma.OperationTags("map"))
}

// Viewport receives a gesture's end state from the client. The viewport
// controller debounces it; markers are pushed from the settle callback over
// the events stream, so this endpoint only acknowledges receipt.
func (h *MarkerHandler) Viewport(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}

	lat := signals.Float("lat")
	lng := signals.Float("lng")
	zoom := signals.Float("zoom")

	return h.Stream(func(sse humastar.SSE) {
		h.state.Viewport.SetView(lat, lng, zoom)
		sse.Signals(map[string]any{"shareurl": "/map?" + h.state.Viewport.EncodeQuery().Encode()})
	}), nil
}

// Markers renders the full marker set for the current viewport. Used on
// initial page load and when a client reattaches after a dropped stream.
func (h *MarkerHandler) Markers(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.state.ResetMarkers()
		commands := h.state.RefreshMarkers()
		sse.Signals(map[string]any{
			"engine":      h.state.EngineName(),
			"mapcommands": commands,
		})
		sse.Patch(offeringOptions(h.Renderer, h.state), "#offering-filter")
		sse.Patch(farmList(h.Renderer, h.state), "#farm-list")
	}), nil
}

// Filter narrows the farm list panel to one offering tag.
func (h *MarkerHandler) Filter(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	offering := signals.String("offering")

	return h.Stream(func(sse humastar.SSE) {
		h.state.SetOffering(offering)
		sse.Patch(farmList(h.Renderer, h.state), "#farm-list")
	}), nil
}

// farmList renders the farms-in-view side panel.
func farmList(r *humastar.Renderer, state *MapState) string {
	farms := state.FarmsInView()
	items := make([]any, len(farms))
	for i, f := range farms {
		items[i] = f
	}
	return humastar.RenderList(r, "farm-card", items,
		"No farms here", "Pan or zoom out to find farm shops nearby.")
}

// offeringOptions renders the filter dropdown from every tag the farm set
// carries.
func offeringOptions(r *humastar.Renderer, state *MapState) string {
	seen := map[string]bool{}
	for _, f := range state.Farms.List() {
		for _, tag := range f.Offerings {
			seen[tag] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	options := make([]humastar.SelectOptionData, len(tags))
	for i, tag := range tags {
		options[i] = humastar.SelectOptionData{Value: tag, Label: tag}
	}
	return humastar.RenderSelect(r, "All offerings", options)
}
