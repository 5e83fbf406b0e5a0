// Package mercator implements the web-mercator projection math shared by the
// clustering index and the viewport controller.
//
// Points project into normalized world coordinates in [0,1]: x grows east,
// y grows south. Pixel distance between two normalized points at zoom z is
// |delta| * extent * 2^z, which is what makes pixel-radius clustering scale
// correctly with zoom.
package mercator

import "math"

// MaxLat is the latitude limit of the web-mercator projection.
const MaxLat = 85.05112878

// Project converts WGS84 lat/lng to normalized world coordinates.
func Project(lat, lng float64) (x, y float64) {
	lng = clamp(lng, -180, 180)
	lat = clamp(lat, -MaxLat, MaxLat)

	x = (lng + 180) / 360
	sin := math.Sin(lat * math.Pi / 180)
	y = 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi

	// Floating-point error at the clamped poles can land a hair outside
	// the unit square.
	return clamp(x, 0, 1), clamp(y, 0, 1)
}

// Unproject converts normalized world coordinates back to lat/lng.
func Unproject(x, y float64) (lat, lng float64) {
	lng = x*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return lat, lng
}

// Scale returns the number of world pixels per normalized unit at a zoom
// level, for the given tile extent.
func Scale(zoom float64, extent int) float64 {
	return float64(extent) * math.Pow(2, zoom)
}

// BoundsAt computes the geographic window visible around a center point at a
// zoom level on a viewport of widthPx x heightPx pixels, using a 256px tile
// base. North/south are clamped at the projection limit.
func BoundsAt(centerLat, centerLng, zoom float64, widthPx, heightPx int) (west, south, east, north float64) {
	cx, cy := Project(centerLat, centerLng)
	scale := Scale(zoom, 256)

	halfW := float64(widthPx) / 2 / scale
	halfH := float64(heightPx) / 2 / scale

	north, west = Unproject(cx-halfW, clamp(cy-halfH, 0, 1))
	south, east = Unproject(cx+halfW, clamp(cy+halfH, 0, 1))
	return west, south, east, north
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
