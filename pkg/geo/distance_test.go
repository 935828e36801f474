package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	origin := Point{Lat: 0, Lng: 0}

	tests := []struct {
		name   string
		target Point
		want   float64
	}{
		{name: "same point", target: origin, want: 0},
		{name: "one degree diagonal", target: Point{Lat: 1, Lng: 1}, want: 157.2},
		{name: "short hop east", target: Point{Lat: 0, Lng: 0.05}, want: 5.56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(origin, tt.target), 0.1)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	lagos := Point{Lat: 6.5244, Lng: 3.3792}
	abuja := Point{Lat: 9.0765, Lng: 7.3986}

	assert.InDelta(t, DistanceKm(lagos, abuja), DistanceKm(abuja, lagos), 1e-9)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lng: -180}.Valid())
	assert.False(t, Point{Lat: 90.01, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 180.5}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 5.6, RoundKm(5.559))
	assert.Equal(t, 157.2, RoundKm(157.249))
}

func TestBoundingBox_EnclosesCircle(t *testing.T) {
	center := Point{Lat: 6.5, Lng: 3.4}
	box, ok := BoundingBox(center, 25)
	assert.True(t, ok)

	for bearing := 0.0; bearing < 360; bearing += 15 {
		edge := destination(center, bearing, 24.9)
		assert.True(t, box.Contains(edge), "bearing %.0f", bearing)
	}
	assert.False(t, box.Contains(Point{Lat: 7.0, Lng: 3.4}))
}

func TestBoundingBox_Degenerate(t *testing.T) {
	_, ok := BoundingBox(Point{Lat: 89.99, Lng: 0}, 50)
	assert.False(t, ok)

	_, ok = BoundingBox(Point{Lat: 0, Lng: 179.99}, 50)
	assert.False(t, ok)

	_, ok = BoundingBox(Point{Lat: 0, Lng: 0}, 0)
	assert.False(t, ok)
}

// destination walks distanceKm from p along the initial bearing
func destination(p Point, bearingDeg, distanceKm float64) Point {
	angular := distanceKm / earthRadiusKm
	bearing := degreesToRadians(bearingDeg)
	lat1 := degreesToRadians(p.Lat)
	lng1 := degreesToRadians(p.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) + math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1), math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2))
	return Point{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}
