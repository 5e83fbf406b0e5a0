package mapui

import (
	"context"
	"fmt"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/farmshopfinder/farmmap/internal/geo/selection"
	"github.com/farmshopfinder/farmmap/internal/humastar"
)

// SelectionHandler drives the selection overlay: the bottom sheet on touch
// layouts, the anchored popover on pointer layouts.
type SelectionHandler struct {
	humastar.Handler
	state *MapState
}

// NewSelectionHandler creates a new selection handler.
func NewSelectionHandler(state *MapState, renderer *humastar.Renderer) *SelectionHandler {
	return &SelectionHandler{
		Handler: humastar.Handler{Renderer: renderer},
		state:   state,
	}
}

func (h *SelectionHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/map/select", h.Select, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/select/{id}", h.SelectByID, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/close", h.Close, huma.OperationTags("map"))
}

// directionsURL builds the external routing link for the overlay's
// navigate action.
func directionsURL(lat, lng float64) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", fmt.Sprintf("%f,%f", lat, lng))
	return "https://www.google.com/maps/dir/?" + q.Encode()
}

// overlayData feeds the farm-sheet and farm-popover fragments.
type overlayData struct {
	ID         string
	Name       string
	Address    string
	County     string
	Postcode   string
	Offerings  []string
	Directions string
	X          int
	Y          int
}

// Select handles a marker tap reported via Datastar signals: farmid plus the
// screen coordinates of the tap for popover anchoring.
func (h *SelectionHandler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}

	farmID := signals.String("farmid")
	at := selection.ScreenPoint{X: signals.Int("tapx"), Y: signals.Int("tapy")}

	return h.Stream(func(sse humastar.SSE) {
		if !h.state.Selection.Click(farmID, at) {
			// stale marker, farm no longer exists
			sse.Error("Farm not found")
			return
		}
		h.pushOverlay(sse, true)
	}), nil
}

// SelectByIDInput names a farm in the path, for search results and deep
// links that bypass the marker layer.
type SelectByIDInput struct {
	ID string `path:"id" doc:"Farm ID to select" example:"darts_farm"`
}

// SelectByID selects a farm from outside the map. The selection machine
// additionally requests a camera flight so the farm comes into view.
func (h *SelectionHandler) SelectByID(ctx context.Context, input *SelectByIDInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if !h.state.Selection.SelectFarm(input.ID) {
			sse.Error("Farm not found")
			return
		}
		h.pushOverlay(sse, true)
	}), nil
}

// Close dismisses the overlay. Fired by the close button, a background map
// tap, and the navigate/share quick actions.
func (h *SelectionHandler) Close(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.state.Selection.Close()
		h.pushOverlay(sse, false)
	}), nil
}

// pushOverlay renders the overlay for the current selection state. Exactly
// one fragment occupies #farm-overlay at a time; pushing a new selection
// replaces the previous one in a single patch.
func (h *SelectionHandler) pushOverlay(sse humastar.SSE, haptic bool) {
	st := h.state.Selection.Current()

	if st.Idle() {
		sse.Patch("", "#farm-overlay")
	} else {
		data := overlayData{
			ID:         st.Farm.ID,
			Name:       st.Farm.Name,
			Address:    st.Farm.Address,
			County:     st.Farm.County,
			Postcode:   st.Farm.Postcode,
			Offerings:  st.Farm.Offerings,
			Directions: directionsURL(st.Farm.Lat, st.Farm.Lng),
			X:          st.Anchor.X,
			Y:          st.Anchor.Y,
		}
		tmpl := "farm-sheet"
		if st.Mode == selection.ModePopover {
			tmpl = "farm-popover"
		}
		html, err := h.Renderer.Render(tmpl, data)
		if err != nil {
			sse.Error("Render failed: " + err.Error())
			return
		}
		sse.Patch(html, "#farm-overlay")
	}

	selectedID := ""
	if st.Farm != nil {
		selectedID = st.Farm.ID
	}
	sse.Signals(map[string]any{
		"selectedfarm": selectedID,
		"haptic":       haptic && !st.Idle(),
	})

	// selection highlight changes the marker set
	sse.Signals(map[string]any{"mapcommands": h.state.RefreshMarkers()})
}
