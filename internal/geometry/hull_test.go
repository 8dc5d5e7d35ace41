package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
)

func TestConvexHull_TooFewPoints(t *testing.T) {
	assert.Nil(t, ConvexHull(nil))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}}))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}}))
}

func TestConvexHull_Square(t *testing.T) {
	points := []orb.Point{
		{0, 0}, {1, 0}, {1, 1}, {0, 1},
		{0.5, 0.5}, // interior point must not appear on the hull
	}

	hull := ConvexHull(points)
	assert.NotNil(t, hull)

	// Closed ring: first and last vertex coincide.
	assert.Equal(t, hull[0], hull[len(hull)-1])

	for _, p := range hull {
		assert.NotEqual(t, orb.Point{0.5, 0.5}, p)
	}
	assert.Len(t, hull, 5)
}

func TestCentroid(t *testing.T) {
	assert.Equal(t, orb.Point{}, Centroid(nil))

	c := Centroid([]orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}})
	assert.Equal(t, orb.Point{1, 1}, c)
}

func TestBoundaryFeature(t *testing.T) {
	features := []*geojson.Feature{
		geojson.NewFeature(orb.Point{103.80, 1.30}),
		geojson.NewFeature(orb.Point{103.90, 1.30}),
		geojson.NewFeature(orb.Point{103.85, 1.40}),
	}

	boundary := BoundaryFeature("MRT", features)
	assert.NotNil(t, boundary)

	polygon, ok := boundary.Geometry.(orb.Polygon)
	assert.True(t, ok)
	assert.NotEmpty(t, polygon)

	assert.Equal(t, "MRT", boundary.Properties["amenity_type"])
	assert.Equal(t, 3, boundary.Properties["point_count"])
	assert.Equal(t, "convex", boundary.Properties["hull_type"])
}

func TestBoundaryFeature_IgnoresNonPoints(t *testing.T) {
	features := []*geojson.Feature{
		geojson.NewFeature(orb.Point{103.80, 1.30}),
		geojson.NewFeature(orb.LineString{{103.80, 1.30}, {103.90, 1.30}}),
	}

	assert.Nil(t, BoundaryFeature("MRT", features))
}
