// Package humastar is the glue between Huma routes and the Datastar
// hypermedia protocol used by the map UI.
//
// The map handlers are Huma streaming operations whose body is a sequence of
// Datastar SSE events: element patches rendered from fragment templates, and
// signal patches carrying raw values (marker commands, share URLs, the
// user's nearest farm). [Handler] is the embeddable base those handlers
// share, [SSE] the per-request event writer, and [Signals] the parsed form
// of what the browser posted.
//
// A typical handler:
//
//	type MarkerHandler struct {
//	    humastar.Handler
//	    farms *service.FarmService
//	}
//
//	func (h *MarkerHandler) Refresh(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.RenderList("farm-card", farms, "No Farms", "Nothing in view"), "#farm-list")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"log"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Handler is the embeddable base for SSE handlers. It carries the fragment
// [Renderer] and wraps stream construction.
type Handler struct {
	Renderer *Renderer
}

// Stream wraps fn in a Huma streaming response with the SSE writer already
// set up.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// RenderList renders each item through the named fragment, or the empty
// state when there are none.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// SSE writes Datastar events for one request. It embeds the generator, so
// the full Datastar surface (PatchElements, DispatchCustomEvent, ...) stays
// available next to the shorthands below.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE unwraps the Huma streaming context down to the response writer the
// Datastar generator needs.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch swaps the inner content of the element at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Signals patches signal values into the client's store.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Error raises the error signal the page's toast area watches.
func (s SSE) Error(msg string) {
	s.Signals(map[string]any{"error": msg})
}

// Success raises the matching success signal.
func (s SSE) Success(msg string) {
	s.Signals(map[string]any{"success": msg})
}

// SelectOptionData is one <option> for the select-option fragment.
type SelectOptionData struct {
	Value string
	Label string
}

// RenderList concatenates one fragment per item. An empty item set renders
// the empty-state fragment instead, so list targets never collapse to
// nothing.
func RenderList(r *Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		if err := r.RenderToBuffer(&buf, "empty-state", map[string]string{
			"Title": emptyTitle, "Message": emptyMsg,
		}); err != nil {
			log.Printf("rendering empty-state: %v", err)
		}
		return buf.String()
	}
	for _, item := range items {
		if err := r.RenderToBuffer(&buf, tmpl, item); err != nil {
			log.Printf("rendering fragment %s: %v", tmpl, err)
		}
	}
	return buf.String()
}

// RenderSelect renders a placeholder option followed by the given options.
// The placeholder carries an empty value, which the filter handlers read as
// "no filter".
func RenderSelect(r *Renderer, placeholder string, options []SelectOptionData) string {
	var buf bytes.Buffer
	for _, opt := range append([]SelectOptionData{{Label: placeholder}}, options...) {
		if err := r.RenderToBuffer(&buf, "select-option", opt); err != nil {
			log.Printf("rendering select-option: %v", err)
		}
	}
	return buf.String()
}
