// Hypermedia actions as RFC 8288 Link headers.
//
// A farm body advertises what the client may do with it (fetch directions,
// delete, edit) as typed links rather than hardcoded client URLs. Fixed
// per-resource actions are declared once as ActionDef templates and stamped
// with the resource ID; state-dependent ones are built inline by the body's
// Actions method.
package humastar

import (
	"fmt"
	"strings"
)

// Action is one hypermedia action link.
type Action struct {
	Rel    string // IANA rel or custom ("directions", "share")
	Href   string
	Method string // HTTP method; empty implies GET
	Title  string // human-readable label
	Schema string // optional JSON Schema URL for the request body
}

// Actor is implemented by response bodies that advertise actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value. Method, title and
// schema ride along as extension parameters.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel=%q`, a.Href, a.Rel)
	for _, p := range []struct{ name, val string }{
		{"method", a.Method},
		{"title", a.Title},
		{"schema", a.Schema},
	} {
		if p.val != "" {
			fmt.Fprintf(&b, `; %s=%q`, p.name, p.val)
		}
	}
	return b.String()
}

// ActionDef is an action template whose Pattern holds a single %s verb for
// the resource ID.
type ActionDef struct {
	Rel     string
	Pattern string // e.g. "/api/v1/farms/%s"
	Method  string
	Title   string
	Schema  string
}

// ActionsFor stamps each definition with the resource ID.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
			Schema: d.Schema,
		}
	}
	return actions
}
