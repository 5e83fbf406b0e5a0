// Hypermedia link generation from the OpenAPI route table.
//
// Huma fixes the transformer list when the API is created, but the links
// can only be derived once every route is registered. NewLinks therefore
// returns an empty set whose Transformer is installed up front; Build fills
// it in afterwards.
package humastar

import (
	"fmt"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Links is a set of RFC 8288 Link header values keyed by operation path.
type Links struct {
	byPath map[string][]string
}

// NewLinks returns an empty set. Install its Transformer in the Huma
// config, register all routes, then call Build.
func NewLinks() *Links {
	return &Links{byPath: map[string][]string{}}
}

// Build derives the links from the registered routes: items point up to
// their collection, collections point to their item template and the entry
// point, and the entry point fans out to everything. Datastar endpoints
// (tagged "map") speak fragments, not JSON hypermedia, and are skipped.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()
	l.byPath = map[string][]string{}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if taggedMap(pi) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
		}
		pi := oapi.Paths[item]
		if pi.Put != nil || pi.Patch != nil {
			l.add(item, item, "edit")
		}
	}

	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
		if oapi.Paths[coll].Post != nil {
			l.add(coll, coll, "create-form")
		}
		if coll != "/health" {
			l.add(coll, "/health", "up")
		}
	}

	// The nearest-farm lookup doubles as the API's search facility.
	if _, ok := oapi.Paths["/api/v1/farms/nearest"]; ok {
		for _, coll := range collections {
			l.add(coll, "/api/v1/farms/nearest", "search")
		}
	}

	// /health is the entry point: it links every collection plus the IANA
	// discovery rels.
	for _, coll := range collections {
		if coll != "/health" {
			l.add("/health", coll, path.Base(coll))
		}
	}
	l.add("/health", "/openapi.json", "service-desc")
	l.add("/health", "/docs", "service-doc")

	l.document(oapi)
}

// document mirrors the generated headers into OpenAPI Response.Links so the
// relationships show up in the rendered docs.
func (l *Links) document(oapi *huma.OpenAPI) {
	for p, pi := range oapi.Paths {
		headers := l.byPath[p]
		if len(headers) == 0 {
			continue
		}
		for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
			if op == nil || op.Responses == nil {
				continue
			}
			for code, resp := range op.Responses {
				if !strings.HasPrefix(code, "2") {
					continue
				}
				if resp.Links == nil {
					resp.Links = map[string]*huma.Link{}
				}
				for _, h := range headers {
					rel, href := splitLinkHeader(h)
					if rel != "" {
						resp.Links[rel] = &huma.Link{
							OperationRef: href,
							Description:  "Related: " + rel,
						}
					}
				}
				break
			}
		}
	}
}

// Transformer injects the built links at response time, together with the
// per-response links: self for resolved item URLs, pagination rels from
// [Pager] bodies, and action links from [Actor] bodies.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.byPath[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel=%q`, to, rel)
	for _, existing := range l.byPath[from] {
		if existing == val {
			return
		}
	}
	l.byPath[from] = append(l.byPath[from], val)
}

func taggedMap(pi *huma.PathItem) bool {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op == nil {
			continue
		}
		for _, t := range op.Tags {
			if t == "map" {
				return true
			}
		}
	}
	return false
}

// splitLinkHeader takes `<url>; rel="name"` apart again.
func splitLinkHeader(h string) (rel, href string) {
	urlPart, rest, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(urlPart), "<>")
	rest = strings.TrimSpace(rest)
	if after, ok := strings.CutPrefix(rest, `rel="`); ok {
		rel, _, _ = strings.Cut(after, `"`)
	}
	return rel, href
}
