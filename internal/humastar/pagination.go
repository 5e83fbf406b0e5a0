package humastar

import "fmt"

// Pager is implemented by response bodies that carry pagination metadata.
// The Links transformer turns the returned values into Link headers.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is the paginated response envelope shared by the list endpoints.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// PaginationLinks emits first/prev/next/last rels for the page. Prev and
// next appear only when the page has a neighbor on that side.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	page := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, basePath, offset, p.Limit, rel)
	}

	links := []string{page(0, "first")}
	if p.Offset > 0 {
		links = append(links, page(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, page(p.Offset+p.Limit, "next"))
	}
	links = append(links, page(max((p.Total-1)/p.Limit, 0)*p.Limit, "last"))
	return links
}
