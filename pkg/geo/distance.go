package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinate lies within the latitude and longitude ranges
func (p Point) Valid() bool {
	return ValidLatitude(p.Lat) && ValidLongitude(p.Lng)
}

// ValidLatitude reports whether lat is in [-90, 90]
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is in [-180, 180]
func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}

// DistanceKm returns the great-circle distance between two points using the haversine formula
func DistanceKm(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Lat))*math.Cos(degreesToRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// RoundKm rounds a distance to one decimal place for presentation
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Bounds is a latitude/longitude rectangle
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether p lies inside the rectangle
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBox returns a rectangle that encloses every point within radiusKm
// of center. It returns false when the circle touches a pole or crosses the
// antimeridian, in which case callers must not prefilter by rectangle.
func BoundingBox(center Point, radiusKm float64) (Bounds, bool) {
	if radiusKm <= 0 || !center.Valid() {
		return Bounds{}, false
	}
	angular := radiusKm / earthRadiusKm
	latDelta := angular * 180 / math.Pi

	minLat, maxLat := center.Lat-latDelta, center.Lat+latDelta
	if minLat <= -90 || maxLat >= 90 {
		return Bounds{}, false
	}

	ratio := math.Sin(angular) / math.Cos(degreesToRadians(center.Lat))
	if ratio >= 1 {
		return Bounds{}, false
	}
	// 1% slack keeps rounding from clipping points on the circle edge
	lngDelta := math.Asin(ratio) * 180 / math.Pi * 1.01
	latDelta *= 1.01

	b := Bounds{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLng: center.Lng + lngDelta,
	}
	if b.MinLng < -180 || b.MaxLng > 180 {
		return Bounds{}, false
	}
	return b, true
}
