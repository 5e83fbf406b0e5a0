package mapui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/farmshopfinder/farmmap/internal/humastar"
	"github.com/farmshopfinder/farmmap/internal/service"
)

// EventHandler is the long-lived SSE stream that pushes map changes to the
// client: marker commands after a viewport settles, and reloads after the
// farm set mutates.
type EventHandler struct {
	humastar.Handler
	state *MapState
}

// NewEventHandler creates a new event handler.
func NewEventHandler(state *MapState, renderer *humastar.Renderer) *EventHandler {
	return &EventHandler{
		Handler: humastar.Handler{Renderer: renderer},
		state:   state,
	}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/map/events", h.Events, huma.OperationTags("map"))
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.state.Bus.Subscribe()
			defer h.state.Bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					switch ev.Kind {
					case service.EventBounds, service.EventZoom:
						if commands := h.state.RefreshMarkers(); len(commands) > 0 {
							sse.Signals(map[string]any{"mapcommands": commands})
						}
						sse.Patch(farmList(h.Renderer, h.state), "#farm-list")
					case service.EventFarms:
						h.state.Clusters.Load(h.state.Farms.List())
						h.state.ResetMarkers()
						sse.Signals(map[string]any{"mapcommands": h.state.RefreshMarkers()})
						sse.Patch(farmList(h.Renderer, h.state), "#farm-list")
					}
					sse.DispatchCustomEvent("map-changed", map[string]any{
						"kind": ev.Kind,
						"id":   ev.ID,
					})
				}
			}
		},
	}, nil
}
