package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/farmshopfinder/farmmap/internal/db"
)

// DBHandler handles analytical endpoints backed by DuckDB.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(conn *sql.DB) *DBHandler {
	return &DBHandler{db: conn}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/stats/density", h.Density, huma.OperationTags("stats"))
	huma.Get(api, "/api/v1/stats/counties", h.Counties, huma.OperationTags("stats"))
}

// DensityInput asks for the farm count inside a bounding box.
type DensityInput struct {
	BoundsInput
}

type DensityOutput struct {
	Body struct {
		Count int `json:"count" doc:"Number of farms inside the box"`
	}
}

// Density returns how many farms fall inside the given box, computed in
// DuckDB against the synced farms table.
func (h *DBHandler) Density(ctx context.Context, input *DensityInput) (*DensityOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	count, err := db.CountInBounds(h.db, input.Bounds())
	if err != nil {
		return nil, huma.Error500InternalServerError("Density query failed", err)
	}

	out := &DensityOutput{}
	out.Body.Count = count
	return out, nil
}

type CountyCount struct {
	County string `json:"county" doc:"County name"`
	Count  int    `json:"count" doc:"Farms in this county"`
}

type CountiesOutput struct {
	Body struct {
		Counties []CountyCount `json:"counties" doc:"Per-county farm counts, largest first"`
	}
}

// Counties returns per-county farm counts.
func (h *DBHandler) Counties(ctx context.Context, input *struct{}) (*CountiesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT county, COUNT(*) FROM farms WHERE county <> '' GROUP BY county ORDER BY COUNT(*) DESC, county`)
	if err != nil {
		return nil, huma.Error500InternalServerError("County query failed", err)
	}
	defer rows.Close()

	counties := []CountyCount{}
	for rows.Next() {
		var c CountyCount
		if err := rows.Scan(&c.County, &c.Count); err != nil {
			continue
		}
		counties = append(counties, c)
	}

	out := &CountiesOutput{}
	out.Body.Counties = counties
	return out, nil
}
