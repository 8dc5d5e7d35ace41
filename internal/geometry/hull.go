// Package geometry derives boundary views over amenity point sets.
package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func angle(center, p orb.Point) float64 {
	dx := p[0] - center[0]
	dy := p[1] - center[1]
	return -1 * dy / (dx*dx + dy*dy + 1e-10)
}

func sortPointsByAngle(points []orb.Point, center orb.Point) {
	sort.Slice(points, func(i, j int) bool {
		return angle(center, points[i]) < angle(center, points[j])
	})
}

// ConvexHull returns the closed hull ring around the points via a Graham
// scan, or nil when fewer than three points are given.
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)

	// Find the leftmost point and pivot on it.
	leftmostIdx := 0
	for i := 1; i < len(pts); i++ {
		if pts[i][0] < pts[leftmostIdx][0] {
			leftmostIdx = i
		}
	}
	pts[0], pts[leftmostIdx] = pts[leftmostIdx], pts[0]
	sortPointsByAngle(pts[1:], pts[0])

	hull := []orb.Point{pts[0], pts[1]}
	for i := 2; i < len(pts); i++ {
		for len(hull) > 1 {
			n := len(hull)
			v1x := hull[n-1][0] - hull[n-2][0]
			v1y := hull[n-1][1] - hull[n-2][1]
			v2x := pts[i][0] - hull[n-2][0]
			v2y := pts[i][1] - hull[n-2][1]
			if v1x*v2y-v1y*v2x >= 0 {
				break
			}
			hull = hull[:n-1]
		}
		hull = append(hull, pts[i])
	}

	if len(hull) > 2 {
		hull = append(hull, hull[0])
	}
	return orb.Ring(hull)
}

// Centroid is the arithmetic mean of the points.
func Centroid(points []orb.Point) orb.Point {
	if len(points) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(points))
	return orb.Point{sx / n, sy / n}
}

// BoundaryFeature hulls the point features of one amenity category into a
// single GeoJSON boundary feature, or nil when there are too few points.
func BoundaryFeature(amenityType string, features []*geojson.Feature) *geojson.Feature {
	var points []orb.Point
	for _, f := range features {
		if p, ok := f.Geometry.(orb.Point); ok {
			points = append(points, p)
		}
	}

	hull := ConvexHull(points)
	if hull == nil {
		return nil
	}

	centroid := Centroid(points)
	out := geojson.NewFeature(orb.Polygon{hull})
	out.Properties = geojson.Properties{
		"amenity_type": amenityType,
		"point_count":  len(points),
		"centroid":     []float64{centroid[0], centroid[1]},
		"hull_type":    "convex",
	}
	return out
}
